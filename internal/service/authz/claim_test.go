package authz

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegate/internal/domain"
	"rulegate/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func adminCtx() context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{Subject: "root", IsAdmin: true})
}

func userCtx() context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{Subject: "alice"})
}

func TestClaimService_Define_AdminAllowed(t *testing.T) {
	lc := &testutil.MockLifecycle{
		ApplyClaimFn: func(_ context.Context, req domain.DefineClaimRequest) (*domain.CompileReport, error) {
			return &domain.CompileReport{Artifacts: []string{domain.ClaimViewName(req.Name)}}, nil
		},
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewClaimService(lc, &testutil.MockClaimRepo{}, audit, testLogger())

	report, err := svc.Define(adminCtx(), domain.DefineClaimRequest{
		Name:  "orgs",
		Query: "SELECT user_id AS subject, org_id AS value FROM org_members",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"claim_orgs"}, report.Artifacts)
	assert.True(t, audit.HasAction("DEFINE_CLAIM"))
	assert.Equal(t, "ALLOWED", audit.LastEntry().Status)
	assert.Equal(t, "root", audit.LastEntry().PrincipalName)
}

func TestClaimService_Define_NonAdminDenied(t *testing.T) {
	called := false
	lc := &testutil.MockLifecycle{
		ApplyClaimFn: func(_ context.Context, _ domain.DefineClaimRequest) (*domain.CompileReport, error) {
			called = true
			return &domain.CompileReport{}, nil
		},
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewClaimService(lc, &testutil.MockClaimRepo{}, audit, testLogger())

	_, err := svc.Define(userCtx(), domain.DefineClaimRequest{Name: "orgs", Query: "SELECT 1"})
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.False(t, called)
	assert.Empty(t, audit.Entries)
}

func TestClaimService_Define_ErrorAudited(t *testing.T) {
	lc := &testutil.MockLifecycle{
		ApplyClaimFn: func(_ context.Context, _ domain.DefineClaimRequest) (*domain.CompileReport, error) {
			return nil, domain.ErrDefinition("claim query must expose subject and value columns")
		},
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewClaimService(lc, &testutil.MockClaimRepo{}, audit, testLogger())

	_, err := svc.Define(adminCtx(), domain.DefineClaimRequest{Name: "orgs", Query: "SELECT 1"})
	var def *domain.DefinitionError
	require.ErrorAs(t, err, &def)
	require.NotNil(t, audit.LastEntry())
	assert.Equal(t, "ERROR", audit.LastEntry().Status)
	assert.NotEmpty(t, audit.LastEntry().ErrorMessage)
}

func TestClaimService_Drop_Audited(t *testing.T) {
	audit := &testutil.MockAuditRepo{}
	svc := NewClaimService(&testutil.MockLifecycle{}, &testutil.MockClaimRepo{}, audit, testLogger())

	require.NoError(t, svc.Drop(adminCtx(), "orgs"))
	assert.True(t, audit.HasAction("DROP_CLAIM"))
	assert.Equal(t, "orgs", audit.LastEntry().Target)
}
