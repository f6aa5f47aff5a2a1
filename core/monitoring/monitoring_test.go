package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestCapturePanic(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	t.Cleanup(func() { Init(NopMonitor{}) })

	assert.NoError(t, CapturePanic(nil, nil))
	assert.Nil(t, mon.err)

	err := CapturePanic("index out of range", map[string]string{"module": "lifecycle"})
	var pe *PanicError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, err, mon.err)
	assert.Equal(t, "lifecycle", mon.tags["module"])

	boom := errors.New("boom")
	assert.Equal(t, boom, CapturePanic(boom, nil))
}
