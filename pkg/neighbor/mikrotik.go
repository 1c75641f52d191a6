package neighbor

import (
	"context"
	"strings"

	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// DefaultScriptCommand runs the discovery script provisioned on the
// routers. Its output is the compact semicolon/comma table ScriptSource
// parses.
const DefaultScriptCommand = "/system script run getNeighbors"

// TableCommand is the protocol-native fallback query.
const TableCommand = "/ip neighbor print terse"

// ScriptSource reads neighbors from the vendor discovery script: rows
// separated by semicolons, fields by commas, in the order
// identity,interface,ip,mac.
type ScriptSource struct {
	Session transport.Session
	Command string
}

// Fetch runs the script and parses its output.
func (s *ScriptSource) Fetch(ctx context.Context) ([]Record, error) {
	cmd := s.Command
	if cmd == "" {
		cmd = DefaultScriptCommand
	}
	out, err := s.Session.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return parseScriptOutput(out), nil
}

func parseScriptOutput(out string) []Record {
	var records []Record
	for _, row := range strings.Split(out, ";") {
		fields := strings.Split(row, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		rec := Record{Identity: fields[0], Interface: fields[1]}
		if len(fields) > 2 {
			rec.IP = fields[2]
		}
		if len(fields) > 3 {
			rec.MAC = fields[3]
		}
		records = append(records, rec)
	}
	return records
}

// TableSource reads the RouterOS neighbor table, one neighbor per line of
// key=value pairs.
type TableSource struct {
	Session transport.Session
}

// Fetch queries the neighbor table and parses the terse output.
func (s *TableSource) Fetch(ctx context.Context) ([]Record, error) {
	out, err := s.Session.Execute(ctx, TableCommand)
	if err != nil {
		return nil, err
	}
	return parseTerseOutput(out), nil
}

func parseTerseOutput(out string) []Record {
	var records []Record
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kv := make(map[string]string)
		for _, field := range util.SplitFields(line) {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				continue
			}
			kv[key] = value
		}
		if kv["identity"] == "" && kv["interface"] == "" {
			continue
		}
		records = append(records, Record{
			Identity:  kv["identity"],
			Interface: kv["interface"],
			IP:        kv["address"],
			MAC:       kv["mac-address"],
		})
	}
	return records
}
