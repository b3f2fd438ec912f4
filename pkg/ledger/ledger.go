/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package ledger keeps a local record of the fixtures created on the remote
// service so they can be removed later.
package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	pubkit "github.com/dburkart/pubkit/api"
)

type Kind string

const (
	KindUser    Kind = "user"
	KindChannel Kind = "channel"
	KindGroup   Kind = "group"
)

// Users go first so that their memberships disappear with them.
var removalOrder = []Kind{KindUser, KindChannel, KindGroup}

type Fixture struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index"`
	Kind      Kind   `gorm:"index"`
	Name      string
	CreatedAt time.Time
	RemovedAt *time.Time
}

// RunSummary counts the fixtures of one run.
type RunSummary struct {
	RunID   string
	Started time.Time
	Total   int
	Pending int
}

type Runs []RunSummary

type Ledger struct {
	db  *gorm.DB
	log zerolog.Logger
}

type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Trace().Msgf(format, args...)
}

func Open(path string, log zerolog.Logger) (*Ledger, error) {
	loggerConfig := gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
		LogLevel:                  gormLogger.Info,
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.New(gormWriter{log}, loggerConfig),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger %s", path)
	}
	if err := db.AutoMigrate(&Fixture{}); err != nil {
		return nil, errors.Wrap(err, "migrating ledger")
	}

	return &Ledger{db: db, log: log}, nil
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func NewRunID() string {
	return uuid.NewString()
}

func (l *Ledger) Record(runID string, kind Kind, name string) error {
	err := l.db.Create(&Fixture{RunID: runID, Kind: kind, Name: name}).Error
	return errors.Wrapf(err, "recording %s %s", kind, name)
}

// Pending lists the fixtures not yet removed, for one run or for every run
// when runID is empty.
func (l *Ledger) Pending(runID string) ([]Fixture, error) {
	q := l.db.Where("removed_at IS NULL")
	if runID != "" {
		q = q.Where("run_id = ?", runID)
	}

	var fixtures []Fixture
	if err := q.Order("id").Find(&fixtures).Error; err != nil {
		return nil, errors.Wrap(err, "listing pending fixtures")
	}
	return fixtures, nil
}

func (l *Ledger) MarkRemoved(id uint) error {
	now := time.Now()
	return l.db.Model(&Fixture{}).Where("id = ?", id).Update("removed_at", &now).Error
}

func (l *Ledger) Runs() (Runs, error) {
	var fixtures []Fixture
	if err := l.db.Order("id").Find(&fixtures).Error; err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}

	runs := Runs{}
	index := map[string]int{}
	for _, f := range fixtures {
		i, ok := index[f.RunID]
		if !ok {
			i = len(runs)
			index[f.RunID] = i
			runs = append(runs, RunSummary{RunID: f.RunID, Started: f.CreatedAt})
		}
		runs[i].Total++
		if f.RemovedAt == nil {
			runs[i].Pending++
		}
	}
	return runs, nil
}

func (runs Runs) Headers() []string {
	return []string{"Run", "Started", "Fixtures", "Pending"}
}

func (runs Runs) Values() [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			humanize.Time(r.Started),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Pending),
		})
	}
	return rows
}

// Remover deletes fixtures from the service.
type Remover interface {
	RemoveUser(ctx context.Context, id string) error
	RemoveChannel(ctx context.Context, id string) error
	DeleteGroup(ctx context.Context, group string) error
}

var _ Remover = pubkit.Client(nil)

type CleanupReport struct {
	Removed int
	Failed  int
}

func (r CleanupReport) Headers() []string {
	return []string{"Removed", "Failed"}
}

func (r CleanupReport) Values() [][]string {
	return [][]string{{strconv.Itoa(r.Removed), strconv.Itoa(r.Failed)}}
}

// Cleanup removes every pending fixture of runID (or of every run) through
// client. Failures are logged and counted; the remaining fixtures are still
// attempted.
func (l *Ledger) Cleanup(ctx context.Context, client Remover, runID string) (CleanupReport, error) {
	report := CleanupReport{}

	pending, err := l.Pending(runID)
	if err != nil {
		return report, err
	}

	for _, kind := range removalOrder {
		for _, f := range pending {
			if f.Kind != kind {
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}

			if err := remove(ctx, client, f); err != nil {
				report.Failed++
				l.log.Warn().Err(err).Str("kind", string(f.Kind)).Str("name", f.Name).Msg("unable to remove fixture")
				continue
			}
			if err := l.MarkRemoved(f.ID); err != nil {
				return report, errors.Wrap(err, "updating ledger")
			}
			report.Removed++
			l.log.Debug().Str("kind", string(f.Kind)).Str("name", f.Name).Msg("removed fixture")
		}
	}

	return report, nil
}

func remove(ctx context.Context, client Remover, f Fixture) error {
	switch f.Kind {
	case KindUser:
		return client.RemoveUser(ctx, f.Name)
	case KindChannel:
		return client.RemoveChannel(ctx, f.Name)
	case KindGroup:
		return client.DeleteGroup(ctx, f.Name)
	}
	return errors.Errorf("unknown fixture kind %q", f.Kind)
}
