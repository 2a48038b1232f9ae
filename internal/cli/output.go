package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"crm_backend/internal/leads/transport"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRoutingConfig(w io.Writer, format string, resp transport.RoutingConfigResponse) error {
	if format == "json" {
		return writeJSON(w, resp)
	}

	fmt.Fprintf(w, "active: %t\n", resp.Active)
	fmt.Fprintln(w, "locations:")
	for _, loc := range resp.Locations {
		fmt.Fprintf(w, "  %s (%s) active=%t\n", loc.Key, loc.DisplayName, loc.Active)
	}
	fmt.Fprintln(w, "users:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, u := range resp.Users {
		fmt.Fprintf(tw, "  %s\t%s\tcount=%d\tactive=%t\n", u.UserID, u.DisplayName, u.Count, u.Active)
	}
	return tw.Flush()
}

func writeRoutedUser(w io.Writer, format string, resp transport.RoutedUserResponse) error {
	if format == "json" {
		return writeJSON(w, resp)
	}
	_, err := fmt.Fprintf(w, "%s %s count=%d\n", resp.UserID, resp.DisplayName, resp.Count)
	return err
}
