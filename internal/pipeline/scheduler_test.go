package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &stubSearcher{})
	profiles := []Profile{
		{Name: "mapo-jeonse", Schedule: "@daily", Criteria: domain.SearchCriteria{}},
		{Name: "gangnam-wolse", Schedule: "0 9 * * 1", Criteria: domain.SearchCriteria{}},
	}

	s, err := NewScheduler(o, nil, profiles, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 2)
}

func TestNewScheduler_BadSchedule(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &stubSearcher{})
	_, err := NewScheduler(o, nil, []Profile{
		{Name: "broken", Schedule: "not a cron expr"},
	}, quietLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
