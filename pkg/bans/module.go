package bans

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// A Ban matches a hardware id, an address, or both.
type Ban struct {
	Entity

	HDID   string `gorm:"column:hdid;index;size:64"`
	Host   string `gorm:"index;size:64"`
	Reason string `gorm:"size:256"`
	// Set by whoever issued the ban
	Issuer  string `gorm:"size:64"`
	Created time.Time
	// zero means the ban never lifts
	Expires time.Time
}

func (b *Ban) Active(now time.Time) bool {
	return b.Expires.IsZero() || now.Before(b.Expires)
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Ban{}); err != nil {
		return nil, err
	}

	return db, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open creates the database file if needed and returns a store on it.
func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// Add bans hdid and/or host. A zero duration bans permanently.
func (s *Store) Add(ctx context.Context, hdid, host, reason, issuer string, duration time.Duration) (*Ban, error) {
	if hdid == "" && host == "" {
		return nil, errors.New("a ban needs a hardware id or a host")
	}

	now := s.now()
	ban := Ban{
		HDID:    hdid,
		Host:    host,
		Reason:  reason,
		Issuer:  issuer,
		Created: now,
	}
	if duration > 0 {
		ban.Expires = now.Add(duration)
	}

	if err := s.db.WithContext(ctx).Create(&ban).Error; err != nil {
		return nil, err
	}
	return &ban, nil
}

// Ban is Add for callers that don't need the record back.
func (s *Store) Ban(ctx context.Context, hdid, host, reason, issuer string, duration time.Duration) error {
	_, err := s.Add(ctx, hdid, host, reason, issuer, duration)
	return err
}

func (s *Store) Remove(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Ban{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Find returns the bans that currently apply to hdid or host.
func (s *Store) Find(ctx context.Context, hdid, host string) ([]Ban, error) {
	query := s.db.WithContext(ctx)
	switch {
	case hdid != "" && host != "":
		query = query.Where("hdid = ? OR host = ?", hdid, host)
	case hdid != "":
		query = query.Where("hdid = ?", hdid)
	case host != "":
		query = query.Where("host = ?", host)
	default:
		return nil, nil
	}

	var bans []Ban
	if err := query.Order("id").Find(&bans).Error; err != nil {
		return nil, err
	}

	now := s.now()
	active := bans[:0]
	for _, ban := range bans {
		if ban.Active(now) {
			active = append(active, ban)
		}
	}
	return active, nil
}

// Check is what the game server asks during the handshake.
func (s *Store) Check(ctx context.Context, hdid, host string) (reason string, banned bool, err error) {
	bans, err := s.Find(ctx, hdid, host)
	if err != nil {
		return "", false, err
	}
	if len(bans) == 0 {
		return "", false, nil
	}
	return bans[0].Reason, true, nil
}
