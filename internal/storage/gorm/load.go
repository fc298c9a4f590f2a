package gormstorage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pitwall/pitwall/internal/model"
	"github.com/pitwall/pitwall/internal/model/convert"
	v1 "github.com/pitwall/pitwall/internal/storage/memory/export/v1"
	"github.com/pitwall/pitwall/pkg/core"
)

// ErrRecordingNotFound is returned by LoadRun for an unknown id.
var ErrRecordingNotFound = errors.New("recording not found")

// ListRecordings returns every stored recording header, newest first.
func ListRecordings(db *gorm.DB) ([]model.Recording, error) {
	var recs []model.Recording
	if err := db.Order("start_time DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("error listing recordings: %w", err)
	}
	return recs, nil
}

// LoadRun reads a recording back into the shape the replay export is built from.
func LoadRun(db *gorm.DB, id uint) (*v1.RunData, error) {
	var rec model.Recording
	err := db.Preload("Drivers").First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRecordingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting recording %d: %w", id, err)
	}

	run := &v1.RunData{Tag: rec.Tag}
	coreRec := convert.RecordingToCore(rec)
	run.Recording = &coreRec

	for _, d := range rec.Drivers {
		dd, err := convert.DriverToCore(d)
		if err != nil {
			return nil, err
		}
		switch d.Slot {
		case 0:
			run.Data.Driver1 = dd
		case 1:
			run.Data.Driver2 = dd
		}
	}

	var frames []model.FrameRecord
	err = db.Where("recording_id = ?", id).Order("seq ASC").Find(&frames).Error
	if err != nil {
		return nil, fmt.Errorf("error getting frames of recording %d: %w", id, err)
	}
	run.Frames = make([]core.Frame, 0, len(frames))
	for _, fr := range frames {
		f, err := convert.FrameToCore(fr)
		if err != nil {
			return nil, err
		}
		f.SessionID = rec.SessionID
		run.Frames = append(run.Frames, f)
	}
	return run, nil
}
