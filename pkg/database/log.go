/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package database

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	actionAddEvent = 1 << iota
	actionAddChannel
)

type WriteAheadLog struct {
	LogPath string
}

func (w *WriteAheadLog) ApplyToDB(d *Database) error {
	file, err := os.OpenFile(w.LogPath, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		action := strings.SplitN(scanner.Text(), ";", 2)
		if len(action) != 2 {
			return fmt.Errorf("wal line %d: malformed entry", line)
		}
		actionType, err := strconv.Atoi(action[0])
		if err != nil {
			return errors.Wrapf(err, "wal line %d", line)
		}
		valueBytes, err := base64.StdEncoding.DecodeString(action[1])
		if err != nil {
			return errors.Wrapf(err, "wal line %d", line)
		}
		dec := gob.NewDecoder(bytes.NewBuffer(valueBytes))

		switch actionType {
		case actionAddEvent:
			var datum Datum
			if err := dec.Decode(&datum); err != nil {
				return errors.Wrapf(err, "wal line %d", line)
			}
			d.appendInternal(&datum)
		case actionAddChannel:
			var channel string
			if err := dec.Decode(&channel); err != nil {
				return errors.Wrapf(err, "wal line %d", line)
			}
			d.addChannelInternal(channel)
		default:
			return fmt.Errorf("wal line %d: unknown action %d", line, actionType)
		}
	}

	return scanner.Err()
}

func (w *WriteAheadLog) write(action int, v any) error {
	var encoded bytes.Buffer

	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode")
	}

	file, err := os.OpenFile(w.LogPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(fmt.Sprintf("%d;%s\n", action, base64.StdEncoding.EncodeToString(encoded.Bytes())))
	return err
}

func (w *WriteAheadLog) AddEvent(d *Datum) error {
	return w.write(actionAddEvent, d)
}

func (w *WriteAheadLog) AddChannel(name string) error {
	return w.write(actionAddChannel, name)
}

func (w *WriteAheadLog) Truncate() error {
	err := os.Remove(w.LogPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
