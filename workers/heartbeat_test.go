package workers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPinger struct{ n atomic.Int32 }

func (p *countingPinger) Heartbeat() int {
	p.n.Add(1)
	return 0
}

func TestStartHeartbeat(t *testing.T) {
	p := &countingPinger{}
	sched, err := StartHeartbeat(p, 20*time.Millisecond)
	require.NoError(t, err)
	defer sched.Shutdown()

	assert.Eventually(t, func() bool { return p.n.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
