package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServerInfo{},
	&Session{},
	&Attack{},
	&Report{},
	&UnitState{},
	&PerformanceSample{},
}

// DatabaseModelsSQLite is the SQLite schema. It matches DatabaseModels;
// geometry columns are stored as WKB blobs there.
var DatabaseModelsSQLite = []interface{}{
	&ServerInfo{},
	&Session{},
	&Attack{},
	&Report{},
	&UnitState{},
	&PerformanceSample{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo describes the instance that recorded the data
type ServerInfo struct {
	gorm.Model
	GroupName        string `json:"groupName" gorm:"size:127"`
	GroupDescription string `json:"groupDescription" gorm:"size:255"`
	GroupWebsite     string `json:"groupURL" gorm:"size:255"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

// PerformanceSample is the model for resolver performance metrics
type PerformanceSample struct {
	Time                  time.Time `json:"time" gorm:"index:idx_performance_time"`
	SessionID             string    `json:"sessionId" gorm:"size:36;index:idx_performance_session_id"`
	Phase                 int       `json:"phase"`
	PendingAttacks        int       `json:"pendingAttacks"`
	Connections           int       `json:"connections"`
	LastResolveDurationMs float32   `json:"lastResolveDurationMs"`
}

func (*PerformanceSample) TableName() string {
	return "performance_samples"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is one recorded game
type Session struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	Name      string         `json:"name" gorm:"size:200"`
	Seed      int64          `json:"seed"`
	Options   datatypes.JSON `json:"options" gorm:"type:jsonb;default:'{}'"`
	StartTime time.Time      `json:"startTime" gorm:"index:idx_session_start"`
	EndTime   sql.NullTime   `json:"endTime"`
	Tag       string         `json:"tag" gorm:"size:127"`
	Attacks   []Attack
	Reports   []Report
}

func (*Session) TableName() string {
	return "sessions"
}

// Attack is one resolved or aborted weapon attack.
// DeclarationID is the server-assigned declaration uuid.
type Attack struct {
	DeclarationID string         `json:"declarationId" gorm:"primaryKey;size:36"`
	SessionID     string         `json:"sessionId" gorm:"size:36;index:idx_attack_session_id"`
	Session       Session        `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time          time.Time      `json:"time" gorm:"index:idx_attack_time"`
	Phase         int            `json:"phase" gorm:"index:idx_attack_phase"`
	AttackerID    int            `json:"attackerId" gorm:"index:idx_attack_attacker"`
	TargetID      int            `json:"targetId"`
	HexTarget     bool           `json:"hexTarget"`
	Weapon        string         `json:"weapon" gorm:"size:64"`
	Handler       string         `json:"handler" gorm:"size:32"`
	ToHit         int            `json:"toHit"`
	ToHitState    string         `json:"toHitState" gorm:"size:16"`
	Modifiers     datatypes.JSON `json:"modifiers" gorm:"type:jsonb;default:'[]'"`
	Roll          int            `json:"roll"`
	Margin        int            `json:"margin"`
	Hit           bool           `json:"hit"`
	Glancing      bool           `json:"glancing"`
	Hits          int            `json:"hits"`
	Distribution  datatypes.JSON `json:"distribution" gorm:"type:jsonb;default:'[]'"`
	Damage        int            `json:"damage"`
	ShotsFired    int            `json:"shotsFired"`
	Jammed        bool           `json:"jammed"`
	Aborted       bool           `json:"aborted"`
	Reason        string         `json:"reason" gorm:"size:255"`
	AttackerQ     int            `json:"attackerQ"`
	AttackerR     int            `json:"attackerR"`
	AttackerPos   geom.Point     `json:"attackerPos"`
	TargetQ       int            `json:"targetQ"`
	TargetR       int            `json:"targetR"`
	TargetPos     geom.Point     `json:"targetPos"`
}

func (*Attack) TableName() string {
	return "attacks"
}

// Report is one battle log line
type Report struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_report_session_id"`
	Session   Session   `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time      time.Time `json:"time"`
	Seq       int       `json:"seq" gorm:"index:idx_report_seq"`
	Phase     int       `json:"phase"`
	AttackID  string    `json:"attackId" gorm:"size:36;index:idx_report_attack_id"`
	SubjectID int       `json:"subjectId"`
	MessageID int       `json:"messageId"`
	Indent    int       `json:"indent"`
	Text      string    `json:"text" gorm:"size:1000"`
}

func (*Report) TableName() string {
	return "reports"
}

// UnitState is a per-phase snapshot of a unit
type UnitState struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string         `json:"sessionId" gorm:"size:36;index:idx_unitstate_session_id"`
	Session   Session        `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UnitID    int            `json:"unitId" gorm:"index:idx_unitstate_unit_id"`
	Name      string         `json:"name" gorm:"size:64"`
	Phase     int            `json:"phase" gorm:"index:idx_unitstate_phase"`
	Time      time.Time      `json:"time" gorm:"index:idx_unitstate_time"`
	Q         int            `json:"q"`
	R         int            `json:"r"`
	Position  geom.Point     `json:"position"`
	Heat      int            `json:"heat"`
	Armor     int            `json:"armor"`
	Structure int            `json:"structure"`
	Destroyed bool           `json:"destroyed"`
	Locations datatypes.JSON `json:"locations" gorm:"type:jsonb;default:'[]'"`
	Equipment datatypes.JSON `json:"equipment" gorm:"type:jsonb;default:'[]'"`
}

func (*UnitState) TableName() string {
	return "unit_states"
}

// GetOrInsert loads the session with the same ID or creates it.
func (s *Session) GetOrInsert(db *gorm.DB) (created bool, err error) {
	var existing Session
	err = db.Where("id = ?", s.ID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(s).Error
			return true, err
		}
		return false, err
	}
	*s = existing
	return false, nil
}
