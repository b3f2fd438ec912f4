/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package database

import (
	"encoding/binary"
	"os"
	"path"
)

// DetectVersion returns the on-disk version of the database at p. A directory
// without a snapshot is "version-less": its data only exists in the
// write-ahead log.
func DetectVersion(p string) uint32 {
	file, err := os.Open(path.Join(p, "metadata"))
	if err != nil {
		return 0
	}
	defer file.Close()

	var version uint32
	err = binary.Read(file, binary.LittleEndian, &version)
	if err != nil {
		return 0
	}

	return version
}

// IsReadable reports whether this build can read the database at p.
func IsReadable(p string) bool {
	return DetectVersion(p) <= DBVersion
}
