package system

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/netsweep/netsweep/internal/testutil"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/neighbor"
	"github.com/netsweep/netsweep/pkg/transport"
)

func ettpDevice() inventory.Device {
	return inventory.Device{
		Site:    "riverside",
		Addr:    "10.0.0.1",
		System:  "ETTP",
		UserEnv: "ROUTER_USER",
		PassEnv: "ROUTER_PW",
		Enabled: true,
	}
}

func ettpCreds() func(string) (string, error) {
	return testutil.StaticCreds(map[string]string{
		"ROUTER_USER": "admin",
		"ROUTER_PW":   "routerpw",
		"USER1":       "modemadmin",
		"PW3":         "modempw",
	})
}

const ettpNeighbors = `"unit-101",unit101_Modem,192.168.88.10,AA:BB:CC:00:01:01;` +
	`"unit-101",unit101_INT,10.1.1.10,AA:BB:CC:00:01:01;` +
	`"unit-102",unit102_Modem,192.168.88.11,AA:BB:CC:00:01:02;` +
	`"unit-103",unit103_INT,10.1.1.12,AA:BB:CC:00:01:03;` +
	`"unit-104",unit104_Modem,192.168.88.13,AA:BB:CC:00:01:04;` +
	`"unit-104",unit104_Public,100.64.0.13,AA:BB:CC:00:01:04;`

func TestETTPCollect(t *testing.T) {
	router := &testutil.ScriptedSession{Outputs: map[string]string{
		neighbor.DefaultScriptCommand: ettpNeighbors,
	}}
	modem101 := &testutil.ScriptedSession{Outputs: map[string]string{
		"/queue simple export":         "add disabled=no max-limit=50M/50M name=Internet target=Bridge_Internet",
		"/queue simple export verbose": "add disabled=no name=Internet queue=50M_Default/50M_Default target=Bridge_Internet",
		"/interface ethernet export":   "set [ find default-name=ether1 ] auto-negotiation=yes",
	}}
	dialer := &testutil.HostDialer{
		Sessions: map[string]*testutil.ScriptedSession{
			"10.0.0.1":      router,
			"192.168.88.10": modem101,
		},
		Errs: map[string]error{
			"192.168.88.13": transport.NewConnectError("192.168.88.13", errors.New("connection refused")),
		},
	}

	sys, err := New(ettpDevice(), Options{Creds: ettpCreds(), Dialer: dialer})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	table, err := sys.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := Table{
		{"Identity", "Mac/Serial", "Speed", "Status"},
		{"unit-101", "AA:BB:CC:00:01:01", "50 Mbps", "Active"},
		{"unit-102", "AA:BB:CC:00:01:02", "No Data", "Inactive"},
		{"unit-103", "AA:BB:CC:00:01:03", "No Data", "No Modem IP"},
		{"unit-104", "AA:BB:CC:00:01:04", "No Data", "Could Not Connect"},
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Collect() =\n%v\nwant\n%v", table, want)
	}
	if !router.Closed() {
		t.Errorf("router session not closed after neighbor discovery")
	}
}

func TestETTPDisabledInternetQueueIsUnshaped(t *testing.T) {
	router := &testutil.ScriptedSession{Outputs: map[string]string{
		neighbor.DefaultScriptCommand: `"unit-201",unit201_Modem,192.168.88.20,AA:BB:CC:00:02:01;` +
			`"unit-201",unit201_INT,10.1.2.20,AA:BB:CC:00:02:01;`,
	}}
	modem := &testutil.ScriptedSession{Outputs: map[string]string{
		"/queue simple export":         "add disabled=yes max-limit=50M/50M name=Internet target=Bridge_Internet",
		"/queue simple export verbose": "add disabled=yes name=Internet queue=50M_Default/50M_Default",
		"/interface ethernet export":   "",
	}}
	dialer := &testutil.HostDialer{Sessions: map[string]*testutil.ScriptedSession{
		"10.0.0.1":      router,
		"192.168.88.20": modem,
	}}

	sys, _ := New(ettpDevice(), Options{Creds: ettpCreds(), Dialer: dialer})
	table, err := sys.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got := table[1][2]; got != "1000 Mbps" {
		t.Errorf("speed = %q, want %q", got, "1000 Mbps")
	}
}

func TestETTPHardwareSpeedOverride(t *testing.T) {
	router := &testutil.ScriptedSession{Outputs: map[string]string{
		neighbor.DefaultScriptCommand: `"unit-301",unit301_Modem,192.168.88.30,AA:BB:CC:00:03:01;` +
			`"unit-301",unit301_INT,10.1.3.30,AA:BB:CC:00:03:01;`,
	}}
	modem := &testutil.ScriptedSession{Outputs: map[string]string{
		"/queue simple export":         "add disabled=no name=Internet queue=50M_Default/50M_Default",
		"/queue simple export verbose": "add disabled=no name=Internet queue=50M_Default/50M_Default",
		"/interface ethernet export":   "set [ find default-name=ether1 ] speed=100Mbps",
	}}
	dialer := &testutil.HostDialer{Sessions: map[string]*testutil.ScriptedSession{
		"10.0.0.1":      router,
		"192.168.88.30": modem,
	}}

	sys, _ := New(ettpDevice(), Options{Creds: ettpCreds(), Dialer: dialer})
	table, err := sys.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got := table[1][2]; got != "100Mbps*" {
		t.Errorf("speed = %q, want %q", got, "100Mbps*")
	}
}

func TestETTPFallsBackToNeighborTable(t *testing.T) {
	router := &testutil.ScriptedSession{
		Outputs: map[string]string{
			neighbor.DefaultScriptCommand: "",
			neighbor.TableCommand: ` 0 interface=unit401_Modem address=192.168.88.40 mac-address=AA:BB:CC:00:04:01 identity="unit-401"
 1 interface=unit401_INT address=10.1.4.40 mac-address=AA:BB:CC:00:04:01 identity="unit-401"`,
		},
	}
	modem := &testutil.ScriptedSession{Outputs: map[string]string{
		"/queue simple export":         "add disabled=no name=Internet queue=25M_Default/25M_Default",
		"/queue simple export verbose": "add disabled=no name=Internet queue=25M_Default/25M_Default",
		"/interface ethernet export":   "",
	}}
	dialer := &testutil.HostDialer{Sessions: map[string]*testutil.ScriptedSession{
		"10.0.0.1":      router,
		"192.168.88.40": modem,
	}}

	sys, _ := New(ettpDevice(), Options{Creds: ettpCreds(), Dialer: dialer})
	table, err := sys.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := []string{"unit-401", "AA:BB:CC:00:04:01", "25 Mbps", "Active"}
	if !reflect.DeepEqual(table[1], want) {
		t.Errorf("row = %v, want %v", table[1], want)
	}
}

func TestETTPEmptyNeighborsIsEmptyResult(t *testing.T) {
	router := &testutil.ScriptedSession{Outputs: map[string]string{
		neighbor.DefaultScriptCommand: "",
		neighbor.TableCommand:         "",
	}}
	dialer := &testutil.HostDialer{Sessions: map[string]*testutil.ScriptedSession{"10.0.0.1": router}}

	sys, _ := New(ettpDevice(), Options{Creds: ettpCreds(), Dialer: dialer})
	if _, err := sys.Collect(context.Background()); !errors.Is(err, transport.ErrEmptyResult) {
		t.Errorf("Collect() error = %v, want ErrEmptyResult", err)
	}
}
