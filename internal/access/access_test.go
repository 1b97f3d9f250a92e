package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/access"
	"regportal/internal/access/store"
	"regportal/pkg/domain"
)

func TestEvaluatorCanActOn(t *testing.T) {
	ctx := context.Background()
	grants := store.NewInMemory()
	evaluator := access.NewEvaluator(grants)

	subjectID := domain.NewSubjectID()
	external := domain.Actor{ID: domain.NewUserID()}
	internal := domain.Actor{ID: domain.NewUserID(), Internal: true}

	t.Run("internal staff act on any subject", func(t *testing.T) {
		ok, err := evaluator.CanActOn(ctx, internal, subjectID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("external user without a grant is denied", func(t *testing.T) {
		ok, err := evaluator.CanActOn(ctx, external, subjectID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("an approved grant authorizes", func(t *testing.T) {
		grants.Put(access.Grant{UserID: external.ID, SubjectID: subjectID, Status: access.GrantApproved})
		ok, err := evaluator.CanActOn(ctx, external, subjectID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("pending and rejected grants do not", func(t *testing.T) {
		other := domain.NewSubjectID()
		grants.Put(access.Grant{UserID: external.ID, SubjectID: other, Status: access.GrantPending})
		ok, err := evaluator.CanActOn(ctx, external, other)
		require.NoError(t, err)
		assert.False(t, ok)

		grants.Put(access.Grant{UserID: external.ID, SubjectID: other, Status: access.GrantRejected})
		ok, err = evaluator.CanActOn(ctx, external, other)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestEvaluatorVisibleSubjects(t *testing.T) {
	ctx := context.Background()
	grants := store.NewInMemory()
	evaluator := access.NewEvaluator(grants)

	t.Run("internal staff are unrestricted", func(t *testing.T) {
		visible, err := evaluator.VisibleSubjects(ctx, domain.Actor{ID: domain.NewUserID(), Internal: true})
		require.NoError(t, err)
		assert.Nil(t, visible, "nil means no restriction")
	})

	t.Run("grantless external user sees an empty set, not everything", func(t *testing.T) {
		visible, err := evaluator.VisibleSubjects(ctx, domain.Actor{ID: domain.NewUserID()})
		require.NoError(t, err)
		require.NotNil(t, visible)
		assert.Empty(t, visible)
	})

	t.Run("approved grants define the visible set", func(t *testing.T) {
		actor := domain.Actor{ID: domain.NewUserID()}
		granted := domain.NewSubjectID()
		grants.Put(access.Grant{UserID: actor.ID, SubjectID: granted, Status: access.GrantApproved})
		grants.Put(access.Grant{UserID: actor.ID, SubjectID: domain.NewSubjectID(), Status: access.GrantPending})

		visible, err := evaluator.VisibleSubjects(ctx, actor)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, granted, visible[0])
	})
}
