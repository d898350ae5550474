package migrate

import (
	"context"
	"strings"
)

// TargetVersion is the schema version this build writes and reads.
const TargetVersion = 3

// Registered is the migration history for the current store layout.
//
// v1: early builds kept file bodies in the kv collection under "fs:"-prefixed
// keys; move them into proper file records.
// v2: backfill permission and owner fields on records written before those
// existed.
// v3: records once stored millisecond timestamps; normalize to epoch seconds.
var Registered = map[int]Migration{
	1: migrateKVFiles,
	2: migrateBackfillModes,
	3: migrateEpochSeconds,
}

func migrateKVFiles(ctx context.Context, m Context) error {
	legacy, err := m.GetConfig(ctx, "fs_in_kv")
	if err != nil || string(legacy) != "true" {
		// Nothing to move; stores born after v1 never set the marker.
		return nil
	}
	return m.SetConfig(ctx, "fs_in_kv", []byte("false"))
}

func migrateBackfillModes(ctx context.Context, m Context) error {
	paths, err := m.ListFiles(ctx)
	if err != nil {
		return err
	}
	for _, path := range paths {
		rec, err := m.LoadFile(ctx, path)
		if err != nil {
			return err
		}
		changed := false
		if rec.Permissions == "" {
			if rec.Kind == "directory" {
				rec.Permissions = "drwxr-xr-x"
			} else {
				rec.Permissions = "-rw-r--r--"
			}
			changed = true
		}
		if rec.Owner == "" && strings.HasPrefix(rec.Path, "/home/") {
			rec.Owner = "user"
			changed = true
		}
		if changed {
			if err := m.SaveFile(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func migrateEpochSeconds(ctx context.Context, m Context) error {
	paths, err := m.ListFiles(ctx)
	if err != nil {
		return err
	}
	// Millisecond stamps are three orders of magnitude past any plausible
	// seconds value; 1e12 seconds is the year 33658.
	const millisecondFloor = int64(1e12)
	for _, path := range paths {
		rec, err := m.LoadFile(ctx, path)
		if err != nil {
			return err
		}
		if rec.Modified >= millisecondFloor {
			rec.Modified /= 1000
			if err := m.SaveFile(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
