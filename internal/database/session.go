package database

import (
	"errors"
	"fmt"

	"github.com/mechcore/firecontrol/internal/model"
	"gorm.io/gorm"
)

// ErrNoSession is returned when no recorded session matches.
var ErrNoSession = errors.New("no such session")

// SessionRows is everything recorded for one session, in recording order.
type SessionRows struct {
	Session    model.Session
	Attacks    []model.Attack
	Reports    []model.Report
	UnitStates []model.UnitState
}

// LoadSession reads one session and its rows. An empty id selects the most
// recently started session.
func LoadSession(db *gorm.DB, id string) (*SessionRows, error) {
	rows := &SessionRows{}

	q := db.Model(&model.Session{})
	if id != "" {
		q = q.Where("id = ?", id)
	} else {
		q = q.Order("start_time DESC")
	}
	if err := q.First(&rows.Session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNoSession, id)
		}
		return nil, fmt.Errorf("error reading session: %w", err)
	}
	sid := rows.Session.ID

	if err := db.Where("session_id = ?", sid).Order("phase, time").Find(&rows.Attacks).Error; err != nil {
		return nil, fmt.Errorf("error reading attacks: %w", err)
	}
	if err := db.Where("session_id = ?", sid).Order("seq").Find(&rows.Reports).Error; err != nil {
		return nil, fmt.Errorf("error reading reports: %w", err)
	}
	if err := db.Where("session_id = ?", sid).Order("unit_id, phase").Find(&rows.UnitStates).Error; err != nil {
		return nil, fmt.Errorf("error reading unit states: %w", err)
	}
	return rows, nil
}
