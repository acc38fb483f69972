package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"vendorica-api/internal/domain"
	"vendorica-api/internal/email"
)

var resetLinkPattern = regexp.MustCompile(`https://app\.vendorica\.com/reset-password\?token=([0-9a-f]{64})`)

func newPasswordService(t *testing.T, env *testEnv, sender email.Sender, limiter RequestLimiter) *PasswordService {
	t.Helper()
	templates, err := email.NewTemplates()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	svc := NewPasswordService(zap.NewNop(), env.store, env.store.PasswordResets(), email.NewMailer(sender, templates), limiter, env.audit, "https://app.vendorica.com/")
	svc.now = env.clock.Now
	return svc
}

// requestToken solicita un reseteo y devuelve el token enviado por email.
func requestToken(t *testing.T, env *testEnv, ctrl *gomock.Controller, emailAddr string) (*PasswordService, string) {
	t.Helper()
	sender := email.NewMockSender(ctrl)
	var raw string
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg email.Message) (string, error) {
		if msg.To != emailAddr || msg.Category != email.TemplatePasswordReset {
			t.Fatalf("unexpected message: %+v", msg)
		}
		m := resetLinkPattern.FindStringSubmatch(msg.HTML)
		if m == nil {
			t.Fatalf("reset link not found in email body")
		}
		raw = m[1]
		return "email-1", nil
	})
	svc := newPasswordService(t, env, sender, nil)
	if err := svc.RequestReset(context.Background(), emailAddr); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	return svc, raw
}

func TestPasswordService_RequestResetKnownEmail(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, testEmail, testPassword, env.orgA.ID)
	ctrl := gomock.NewController(t)

	_, raw := requestToken(t, env, ctrl, testEmail)

	tokens := env.store.ResetTokens()
	if len(tokens) != 1 {
		t.Fatalf("expected one stored token, got %d", len(tokens))
	}
	stored := tokens[0]
	if stored.TokenHash != hashResetToken(raw) || stored.TokenHash == raw {
		t.Fatalf("only the token hash must be stored")
	}
	if stored.UserID != user.ID || !stored.ExpiresAt.Equal(env.clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected token record: %+v", stored)
	}
	if got := env.auditActions(); len(got) != 1 || got[0] != domain.AuditActionPasswordResetRequested {
		t.Fatalf("expected reset audit, got %v", got)
	}
}

func TestPasswordService_RequestResetUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctrl := gomock.NewController(t)
	sender := email.NewMockSender(ctrl)
	svc := newPasswordService(t, env, sender, nil)

	if err := svc.RequestReset(context.Background(), "nobody@vendorica.com"); err != nil {
		t.Fatalf("unknown email must look like success, got %v", err)
	}
	if len(env.store.ResetTokens()) != 0 {
		t.Fatalf("no token may be stored for unknown email")
	}
	if err := svc.RequestReset(context.Background(), "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestPasswordService_RequestResetEmailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, testEmail, testPassword, env.orgA.ID)
	ctrl := gomock.NewController(t)
	sender := email.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("provider down"))
	svc := newPasswordService(t, env, sender, nil)

	if err := svc.RequestReset(context.Background(), testEmail); !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}
}

func TestPasswordService_RequestResetRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctrl := gomock.NewController(t)
	svc := newPasswordService(t, env, email.NewMockSender(ctrl), NewMemoryLimiter(time.Hour, 1))

	if err := svc.RequestReset(context.Background(), "nobody@vendorica.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := svc.RequestReset(context.Background(), "NOBODY@vendorica.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestPasswordService_UpdatePasswordSingleUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedUser(t, testEmail, testPassword, env.orgA.ID)
	svc, raw := requestToken(t, env, gomock.NewController(t), testEmail)

	if err := svc.ValidateResetToken(ctx, raw); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := svc.UpdatePassword(ctx, raw, "brand-new-password"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if err := svc.UpdatePassword(ctx, raw, "another-password"); !errors.Is(err, ErrResetTokenUsed) {
		t.Fatalf("expected ErrResetTokenUsed, got %v", err)
	}
	if err := svc.ValidateResetToken(ctx, raw); !errors.Is(err, ErrResetTokenUsed) {
		t.Fatalf("expected ErrResetTokenUsed on validate, got %v", err)
	}

	if _, err := env.auth.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := env.auth.Login(ctx, testEmail, "brand-new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	actions := env.auditActions()
	if actions[1] != domain.AuditActionPasswordUpdated {
		t.Fatalf("expected password_updated audit, got %v", actions)
	}
}

func TestPasswordService_UpdatePasswordErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedUser(t, testEmail, testPassword, env.orgA.ID)
	svc, raw := requestToken(t, env, gomock.NewController(t), testEmail)

	if err := svc.UpdatePassword(ctx, raw, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := svc.UpdatePassword(ctx, "deadbeef", "long-enough"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
	if err := svc.UpdatePassword(ctx, "", "long-enough"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for empty token, got %v", err)
	}

	env.clock.Advance(time.Hour + time.Minute)
	if err := svc.UpdatePassword(ctx, raw, "long-enough"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestPasswordService_ExpiryReportedBeforeUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedUser(t, testEmail, testPassword, env.orgA.ID)
	svc, raw := requestToken(t, env, gomock.NewController(t), testEmail)

	if err := svc.UpdatePassword(ctx, raw, "long-enough"); err != nil {
		t.Fatalf("update: %v", err)
	}
	env.clock.Advance(2 * time.Hour)
	if err := svc.UpdatePassword(ctx, raw, "long-enough"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired for used and expired token, got %v", err)
	}
}

func TestPasswordService_ConcurrentRedemption(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, testEmail, testPassword, env.orgA.ID)
	svc, raw := requestToken(t, env, gomock.NewController(t), testEmail)

	const workers = 4
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		used      atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.UpdatePassword(context.Background(), raw, "concurrent-password")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrResetTokenUsed):
				used.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || used.Load() != workers-1 {
		t.Fatalf("expected exactly one redemption, got %d successes and %d used", successes.Load(), used.Load())
	}
}
