package system

import "testing"

const queueExportVerbose = `/queue simple
add burst-limit=0/0 burst-threshold=0/0 burst-time=0s/0s bucket-size=0.1/0.1 \
    disabled=no limit-at=0/0 max-limit=50M/50M name=Internet packet-marks="" \
    parent=none priority=8/8 queue=50M_Default/50M_Default target=Bridge_Internet
add disabled=yes max-limit=10M/10M name=Guest queue=10M_Guest/10M_Guest \
    target=Bridge_Guest
`

func TestParseQueueExport(t *testing.T) {
	rules := ParseQueueExport(joinContinuations(queueExportVerbose))
	if len(rules) != 2 {
		t.Fatalf("ParseQueueExport() returned %d rules, want 2", len(rules))
	}
	if got := rules[0]["name"]; got != "Internet" {
		t.Errorf("rules[0][name] = %q, want %q", got, "Internet")
	}
	if got := rules[0]["queue"]; got != "50M_Default/50M_Default" {
		t.Errorf("rules[0][queue] = %q, want %q", got, "50M_Default/50M_Default")
	}
	if got := rules[1]["disabled"]; got != "yes" {
		t.Errorf("rules[1][disabled] = %q, want %q", got, "yes")
	}
}

func TestRateFromRule(t *testing.T) {
	tests := []struct {
		name string
		rule QueueRule
		want string
	}{
		{"queue type mega", QueueRule{"queue": "50M_Default/50M_Default"}, "50 Mbps"},
		{"queue type bare number", QueueRule{"queue": "100/100"}, "100 Mbps"},
		{"queue type kilo", QueueRule{"queue": "512K_Legacy/512K_Legacy"}, "512 Kbps"},
		{"max-limit fallback", QueueRule{"queue": "default-small/default-small", "max-limit": "25M/25M"}, "25 Mbps"},
		{"max-limit kilo", QueueRule{"max-limit": "768K/768K"}, "768 Kbps"},
		{"disabled yields nothing", QueueRule{"queue": "50M_Default/50M_Default", "disabled": "yes"}, ""},
		{"no rate anywhere", QueueRule{"name": "Internet"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RateFromRule(tt.rule); got != tt.want {
				t.Errorf("RateFromRule() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInternetQueueDisabled(t *testing.T) {
	tests := []struct {
		name   string
		export string
		want   bool
	}{
		{
			"disabled by name",
			"/queue simple\nadd disabled=yes max-limit=50M/50M name=Internet target=Bridge_Internet\n",
			true,
		},
		{
			"enabled by name",
			"/queue simple\nadd disabled=no max-limit=50M/50M name=Internet target=Bridge_Internet\n",
			false,
		},
		{
			"disabled by target only",
			"/queue simple\nadd disabled=yes max-limit=50M/50M name=Uplink target=Bridge_Internet\n",
			true,
		},
		{
			"name wins over target",
			"/queue simple\n" +
				"add disabled=no name=Internet target=Bridge_Other\n" +
				"add disabled=yes name=Uplink target=Bridge_Internet\n",
			false,
		},
		{
			"wrapped rule",
			"/queue simple\nadd disabled=yes \\\n    name=Internet target=Bridge_Internet\n",
			true,
		},
		{"no internet queue", "/queue simple\nadd name=Guest disabled=yes\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InternetQueueDisabled(tt.export); got != tt.want {
				t.Errorf("InternetQueueDisabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHardwareSpeed(t *testing.T) {
	export := "/interface ethernet\nset [ find default-name=ether1 ] speed=100Mbps\n"
	if got := HardwareSpeed(export); got != "100Mbps" {
		t.Errorf("HardwareSpeed() = %q, want %q", got, "100Mbps")
	}
	if got := HardwareSpeed("/interface ethernet\nset [ find default-name=ether1 ] auto-negotiation=yes\n"); got != "" {
		t.Errorf("HardwareSpeed() = %q, want empty", got)
	}
}
