package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitwall/pitwall/pkg/core"
)

var _ Backend = Noop{}

func TestNoop(t *testing.T) {
	var b Backend = Noop{}
	rec := &core.Recording{TrackName: "Monaco"}

	assert.NoError(t, b.Init())
	assert.NoError(t, b.StartRecording(rec, core.Comparison{}))
	assert.NoError(t, b.RecordFrame(&core.Frame{Seq: 1}))
	assert.NoError(t, b.EndRecording())
	assert.NoError(t, b.Close())
	assert.Zero(t, rec.ID)
}
