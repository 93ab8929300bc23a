package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ownerFlag(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "owner user id")
	_ = cmd.MarkFlagRequired("owner")
}

func parseOwner(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("owner")
	return parseID("owner", raw)
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return id, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates, read as UTC
// midnight.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", raw)
}

// optionalString returns nil unless flag was set on the command line.
func optionalString(cmd *cobra.Command, flag string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	v, _ := cmd.Flags().GetString(flag)
	return &v
}
