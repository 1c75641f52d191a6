package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleCSV = `Site,Device,MgmtIP,System,Roles,Access,Port,UserEnv,PwEnv,Enabled,Notes
Riverview,default,10.10.1.1,ETTP,"firewall,export",ssh,22,USER1,PW1,yes,
Lakeside,core,10.10.2.1,GPON,web-system,telnet,,USER2,PW2,yes,older shelf
Hilltop,default,10.10.3.1,DSL,backup,telnet,2323,USER1,PW3,no,decommissioned
`

func TestLoad(t *testing.T) {
	devs, err := Load(writeCSV(t, sampleCSV))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(devs) != 3 {
		t.Fatalf("Load() returned %d devices, want 3", len(devs))
	}

	d := devs[0]
	if d.Site != "Riverview" {
		t.Errorf("Site = %q, want %q", d.Site, "Riverview")
	}
	if d.System != "ETTP" {
		t.Errorf("System = %q, want %q", d.System, "ETTP")
	}
	if !d.HasRole("firewall") || !d.HasRole("export") {
		t.Errorf("Roles = %v, want firewall and export", d.Roles)
	}
	if d.Access != transport.ProtocolSSH {
		t.Errorf("Access = %q, want ssh", d.Access)
	}
	if d.Port != 22 {
		t.Errorf("Port = %d, want 22", d.Port)
	}

	if devs[1].Access != transport.ProtocolTelnet {
		t.Errorf("Lakeside Access = %q, want telnet", devs[1].Access)
	}
	if devs[1].Port != 0 {
		t.Errorf("Lakeside Port = %d, want 0 (protocol default)", devs[1].Port)
	}

	if devs[2].Enabled {
		t.Error("Hilltop should be disabled")
	}
}

func TestLoadBOMHeader(t *testing.T) {
	devs, err := Load(writeCSV(t, "\ufeff"+sampleCSV))
	if err != nil {
		t.Fatalf("Load() with BOM error = %v", err)
	}
	if devs[0].Site != "Riverview" {
		t.Errorf("Site = %q, want %q", devs[0].Site, "Riverview")
	}
}

func TestLoadMissingColumns(t *testing.T) {
	_, err := Load(writeCSV(t, "Site,MgmtIP\nA,10.0.0.1\n"))
	var verr *util.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load() error = %v, want *util.ValidationError", err)
	}
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(writeCSV(t, "Site,Device,MgmtIP,System,Roles,Access\n"))
	if !errors.Is(err, util.ErrEmptyInventory) {
		t.Fatalf("Load() error = %v, want ErrEmptyInventory", err)
	}
}

func TestDeviceIdentity(t *testing.T) {
	tests := []struct {
		d    Device
		want string
	}{
		{Device{Site: "Riverview", Name: "default"}, "Riverview"},
		{Device{Site: "Riverview", Name: "core"}, "Riverview/core"},
		{Device{Site: "Riverview"}, "Riverview"},
	}
	for _, tt := range tests {
		if got := tt.d.Identity(); got != tt.want {
			t.Errorf("Identity() = %q, want %q", got, tt.want)
		}
	}
}

func TestHasRoleCaseInsensitive(t *testing.T) {
	d := dev("A", "firewall")
	if !d.HasRole("Firewall") {
		t.Error("HasRole should be case-insensitive")
	}
	if d.HasRole("fire") {
		t.Error("HasRole should match whole tags only")
	}
}
