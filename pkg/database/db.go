/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package database

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/dburkart/pubkit/pkg/timetoken"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DBVersion is the version of the database as recorded on disk.
const DBVersion = 1

type Options struct {
	// Retention hides records older than now-Retention. A fetch whose start
	// lies before that horizon has its start ignored, the way the hosted
	// service treats out-of-range start tokens.
	Retention time.Duration
	Clock     func() time.Time
	Log       zerolog.Logger
}

type Database struct {
	Version       uint32
	Segments      []Segment
	ChannelLookup []string
	STime         time.Time // Last serialize time
	Name          string    // <-- We do not save to disk, starting here
	Path          string

	// Private fields

	channels    map[string]int
	lock        sync.RWMutex
	appendCount int
	dirtyFrom   int
	last        timetoken.Token
	opts        Options
	log         zerolog.Logger
}

func (db *Database) Stats() Stats {
	db.lock.RLock()
	defer db.lock.RUnlock()

	records := 0
	for i := range db.Segments {
		records += db.Segments[i].Size()
	}

	return Stats{
		Segments:      len(db.Segments),
		ChannelCount:  len(db.ChannelLookup),
		RecordCount:   records,
		SerializeTime: db.STime,
	}
}

// Channels lists every channel that has ever been published to.
func (db *Database) Channels() []string {
	db.lock.RLock()
	defer db.lock.RUnlock()

	ret := make([]string, len(db.ChannelLookup))
	copy(ret, db.ChannelLookup)
	return ret
}

func (db *Database) now() time.Time {
	if db.opts.Clock != nil {
		return db.opts.Clock()
	}
	return time.Now()
}

func (db *Database) appendInternal(data *Datum) {
	if len(db.Segments) == 0 || db.Segments[len(db.Segments)-1].Size() >= SegmentSize {
		db.Segments = append(db.Segments, Segment{HeadToken: data.Token})
	}

	current := len(db.Segments) - 1
	if success, err := db.Segments[current].Append(data); !success {
		db.log.Error().Err(err).Str("token", data.Token.String()).Msg("dropping out of order datum")
		return
	}
	if current < db.dirtyFrom {
		db.dirtyFrom = current
	}
	if data.Token > db.last {
		db.last = data.Token
	}
	db.appendCount += 1
}

func (db *Database) addChannelInternal(name string) int {
	index := len(db.ChannelLookup)
	db.ChannelLookup = append(db.ChannelLookup, name)
	db.channels[name] = index
	return index
}

// deserializeInternal de-serializes a database from disk.
// It expects the path field to be filled in on the database struct
func (db *Database) deserializeInternal() error {
	// First, read in our metadata
	file, err := os.Open(path.Join(db.Path, "metadata"))
	if err != nil {
		return err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	err = binary.Read(r, binary.LittleEndian, &db.Version)
	if err != nil {
		return err
	}
	if db.Version > DBVersion {
		return fmt.Errorf("cannot read database, on-disk version (%d) is greater than our version (%d)", db.Version, DBVersion)
	}

	var segmentCount uint32
	err = binary.Read(r, binary.LittleEndian, &segmentCount)
	if err != nil {
		return err
	}

	timeBytes, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	db.STime, err = time.Parse(time.RFC3339, string(timeBytes))
	if err != nil {
		return err
	}

	segmentsDirectory := path.Join(db.Path, "segments")
	for i := uint32(0); i < segmentCount; i++ {
		var segment Segment

		contents, err := os.ReadFile(filepath.Join(segmentsDirectory, fmt.Sprintf("%d", i)))
		if err != nil {
			return err
		}

		dec := gob.NewDecoder(bytes.NewBuffer(contents))
		err = dec.Decode(&segment)
		if err != nil {
			return errors.Wrapf(err, "decoding segment %d", i)
		}

		db.Segments = append(db.Segments, segment)
		if tail := segment.Tail(); tail > db.last {
			db.last = tail
		}
	}

	channelFile, err := os.Open(path.Join(db.Path, "channels"))
	if err != nil {
		return err
	}
	defer channelFile.Close()

	reader, err := zlib.NewReader(channelFile)
	if err != nil {
		return err
	}
	defer reader.Close()

	var channelBuffer bytes.Buffer
	_, err = io.Copy(&channelBuffer, reader)
	if err != nil {
		return err
	}

	var channels []string
	err = json.Unmarshal(channelBuffer.Bytes(), &channels)
	if err != nil {
		return err
	}
	for _, c := range channels {
		db.addChannelInternal(c)
	}

	db.dirtyFrom = len(db.Segments)
	return nil
}

func writeFileAtomic(p string, contents []byte) error {
	tmpPath := p + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}

	_, err = file.Write(contents)
	if err != nil {
		file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, p)
}

func (db *Database) serializeInternal() error {
	newSTime := db.now()

	// Ensure that there is a segments directory
	segmentsDirectory := path.Join(db.Path, "segments")
	if err := os.MkdirAll(segmentsDirectory, 0755); err != nil {
		return err
	}

	// Only segments touched since the last snapshot need to be rewritten
	for i := db.dirtyFrom; i < len(db.Segments); i++ {
		var encoded bytes.Buffer

		enc := gob.NewEncoder(&encoded)
		if err := enc.Encode(db.Segments[i]); err != nil {
			return errors.Wrapf(err, "encoding segment %d", i)
		}

		if err := writeFileAtomic(filepath.Join(segmentsDirectory, fmt.Sprintf("%d", i)), encoded.Bytes()); err != nil {
			return err
		}
	}

	// Write out our channels
	channels, err := json.Marshal(db.ChannelLookup)
	if err != nil {
		return err
	}

	var channelBuffer bytes.Buffer
	w := zlib.NewWriter(&channelBuffer)
	if _, err = w.Write(channels); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = writeFileAtomic(filepath.Join(db.Path, "channels"), channelBuffer.Bytes()); err != nil {
		return err
	}

	// Now, write out our metadata
	databaseMetadata := bytes.NewBuffer(binary.LittleEndian.AppendUint32([]byte{}, db.Version))
	databaseMetadata.Write(binary.LittleEndian.AppendUint32([]byte{}, uint32(len(db.Segments))))
	databaseMetadata.Write([]byte(newSTime.UTC().Format(time.RFC3339)))
	if err = writeFileAtomic(filepath.Join(db.Path, "metadata"), databaseMetadata.Bytes()); err != nil {
		return err
	}

	// Finally, zero out the write-ahead log
	wal := WriteAheadLog{filepath.Join(db.Path, "wal.log")}
	if err = wal.Truncate(); err != nil {
		return errors.Wrap(err, "error removing wal.log")
	}

	db.STime = newSTime
	db.appendCount = 0
	if len(db.Segments) > 0 {
		db.dirtyFrom = len(db.Segments) - 1
	}

	return nil
}

//-- Public Interfaces

// Append publishes data to the end of channel's log and returns the token it
// was assigned. Tokens are strictly increasing across the whole database.
func (db *Database) Append(channel string, payload, meta []byte, publisher string) (timetoken.Token, error) {
	if channel == "" {
		return 0, errors.New("channel name must not be empty")
	}

	// Explicitly copy the data before taking the lock to minimize resource
	// contention
	e := Datum{Payload: make([]byte, len(payload)), Publisher: publisher}
	copy(e.Payload, payload)
	if meta != nil {
		e.Meta = make([]byte, len(meta))
		copy(e.Meta, meta)
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	wal := WriteAheadLog{filepath.Join(db.Path, "wal.log")}

	id, ok := db.channels[channel]
	if !ok {
		if err := wal.AddChannel(channel); err != nil {
			return 0, err
		}
		id = db.addChannelInternal(channel)
	}
	e.ChannelID = id

	// Pull the token now that we have acquired our db lock
	e.Token = timetoken.FromTime(db.now())
	if e.Token <= db.last {
		e.Token = db.last + 1
	}

	if err := wal.AddEvent(&e); err != nil {
		return 0, err
	}
	db.appendInternal(&e)

	if db.appendCount >= SegmentSize {
		if err := db.serializeInternal(); err != nil {
			db.log.Error().Err(err).Msg("error serializing database to disk")
		}
	}

	return e.Token, nil
}

type bound struct {
	token     timetoken.Token
	inclusive bool
	set       bool
}

func (b bound) admitsAbove(t timetoken.Token) bool {
	if !b.set {
		return true
	}
	if b.inclusive {
		return t >= b.token
	}
	return t > b.token
}

func (b bound) admitsBelow(t timetoken.Token) bool {
	if !b.set {
		return true
	}
	if b.inclusive {
		return t <= b.token
	}
	return t < b.token
}

// window resolves start/end into lower and upper bounds. start is an
// exclusive lower bound and end an inclusive upper bound; a start at or past
// the end leaves nothing in between.
func window(start, end *timetoken.Token) (lower, upper bound) {
	if start != nil {
		lower = bound{*start, false, true}
	}
	if end != nil {
		upper = bound{*end, true, true}
	}
	return
}

// Fetch returns up to limit of the newest records of channel with
// start < t <= end, oldest first. Paging backward means lowering end.
func (db *Database) Fetch(channel string, start, end *timetoken.Token, limit int) Entries {
	db.lock.RLock()
	defer db.lock.RUnlock()

	id, ok := db.channels[channel]
	if !ok || limit <= 0 {
		return Entries{}
	}

	var horizon bound
	if db.opts.Retention > 0 {
		horizon = bound{timetoken.FromTime(db.now().Add(-db.opts.Retention)), true, true}
		if start != nil && *start < horizon.token {
			db.log.Debug().
				Str("start", start.String()).
				Str("horizon", horizon.token.String()).
				Msg("ignoring start outside of retention")
			start = nil
		}
	}

	lower, upper := window(start, end)
	if horizon.set && (!lower.set || lower.token < horizon.token) {
		lower = horizon
	}

	results := make(Entries, 0, limit)

scan:
	for i := len(db.Segments) - 1; i >= 0; i-- {
		segment := &db.Segments[i]
		if segment.Size() == 0 {
			continue
		}
		if lower.set && !lower.admitsAbove(segment.Tail()) {
			break
		}

		top := segment.Size()
		if upper.set {
			if upper.inclusive {
				top = segment.FindFirstAfter(upper.token)
			} else {
				top = segment.FindFirstAtOrAfter(upper.token)
			}
		}

		for j := top - 1; j >= 0; j-- {
			d := &segment.Series[j]
			if !lower.admitsAbove(d.Token) {
				break scan
			}
			if d.ChannelID != id {
				continue
			}
			results = append(results, Entry{
				Token:     d.Token,
				Channel:   channel,
				Payload:   d.Payload,
				Meta:      d.Meta,
				Publisher: d.Publisher,
			})
			if len(results) == limit {
				break scan
			}
		}
	}

	// We collected newest first
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	return results
}

// Close writes a snapshot so the next open does not replay the log.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.appendCount == 0 {
		return nil
	}
	return db.serializeInternal()
}

// NewDatabase opens the database stored in location, creating the directory
// if it does not exist yet.
func NewDatabase(name string, location string, opts Options) (*Database, error) {
	// If the path does not exist, create a new directory
	fileinfo, err := os.Stat(location)
	if os.IsNotExist(err) {
		err := os.MkdirAll(location, 0700)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else if !fileinfo.IsDir() {
		return nil, fmt.Errorf("supplied path is not a directory")
	}

	if !IsReadable(location) {
		return nil, fmt.Errorf("database at %s was written by a newer version", location)
	}

	db := &Database{
		Version:  DBVersion,
		Path:     location,
		Segments: []Segment{},
		channels: make(map[string]int),
		opts:     opts,
		log:      opts.Log.With().Str("db_name", name).Logger(),
	}

	if _, err = os.Stat(filepath.Join(location, "metadata")); err == nil {
		err = db.deserializeInternal()
		if err != nil {
			return nil, errors.Wrap(err, "reading snapshot")
		}
	}

	wal := WriteAheadLog{filepath.Join(db.Path, "wal.log")}
	if err = wal.ApplyToDB(db); err != nil {
		return nil, errors.Wrap(err, "replaying write-ahead log")
	}

	// We set the name here so that it's always correct, since the name can
	// change after we first splat to disk.
	db.Name = name
	if db.appendCount >= SegmentSize {
		if err := db.serializeInternal(); err != nil {
			return nil, err
		}
	}

	return db, nil
}
