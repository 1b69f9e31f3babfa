package dashboard_api_test

import (
	"testing"

	"ms-meetings/internal/dashboard/dashboard_api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEvictsLeastRecentlyUsedIdleManager(t *testing.T) {
	r := dashboard_api.NewRegistry(newMemoryEventStore()).WithLimit(2)

	a := r.Manager("a@example.com")
	r.Manager("b@example.com")
	assert.Same(t, a, r.Manager("a@example.com"))

	r.Manager("c@example.com")
	assert.Equal(t, 2, r.Len())
	assert.Same(t, a, r.Manager("a@example.com"), "recently used manager is kept")
}

func TestRegistryNeverEvictsBusyManager(t *testing.T) {
	r := dashboard_api.NewRegistry(newMemoryEventStore()).WithLimit(1)

	held, release, err := r.Acquire("a@example.com")
	require.NoError(t, err)

	r.Manager("b@example.com")
	assert.Equal(t, 2, r.Len())

	_, _, err = r.Acquire("a@example.com")
	assert.ErrorIs(t, err, dashboard_api.ErrBusy)

	release()
	again, release, err := r.Acquire("a@example.com")
	require.NoError(t, err)
	defer release()
	assert.Same(t, held, again)
}

func TestRegistryReadsIgnoreBusyFlag(t *testing.T) {
	r := dashboard_api.NewRegistry(newMemoryEventStore())

	held, release, err := r.Acquire("a@example.com")
	require.NoError(t, err)
	defer release()

	assert.Same(t, held, r.Manager("a@example.com"))
}
