package messages

import "testing"

func TestBuildAddress(t *testing.T) {
	b := NewOSCAddressBuilder("gala")

	tests := []struct {
		name    string
		msgType MessageType
		params  map[string]string
		want    string
	}{
		{"cue list", MsgRunCues, nil, "/runsheet/gala/cues"},
		{"stats", MsgRunStats, nil, "/runsheet/gala/stats"},
		{"reset", MsgRunReset, nil, "/runsheet/gala/reset"},
		{"start cue", MsgCueStart, map[string]string{"cue_id": "abc"}, "/runsheet/gala/cue/abc/start"},
		{"delete cue", MsgCueDelete, map[string]string{"cue_id": "abc"}, "/runsheet/gala/cue/abc/delete"},
		{"missing cue id", MsgCueStart, nil, ""},
		{"unknown type", MessageType("bogus"), nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.BuildAddress(tt.msgType, tt.params); got != tt.want {
				t.Errorf("BuildAddress = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildAddressWithoutRun(t *testing.T) {
	b := NewOSCAddressBuilder("")
	if got := b.BuildAddress(MsgRunCues, nil); got != "" {
		t.Errorf("expected empty address without a run, got %q", got)
	}
	if got := b.GetRunPrefix(); got != "" {
		t.Errorf("expected empty prefix without a run, got %q", got)
	}
}

func TestBuildReplyAddress(t *testing.T) {
	b := NewOSCAddressBuilder("gala")
	if got := b.BuildReplyAddress("/runsheet/gala/stats"); got != "/reply/runsheet/gala/stats" {
		t.Errorf("got %q", got)
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		address string
		want    Address
		wantErr bool
	}{
		{"/runsheet/gala/cues", Address{RunID: "gala", Action: ActionCues}, false},
		{"/runsheet/gala/new", Address{RunID: "gala", Action: ActionNew}, false},
		{"/runsheet/gala/reset", Address{RunID: "gala", Action: ActionReset}, false},
		{"/runsheet/gala/cue/abc", Address{RunID: "gala", CueID: "abc", Action: ActionGet}, false},
		{"/runsheet/gala/cue/abc/start", Address{RunID: "gala", CueID: "abc", Action: "start"}, false},
		{"/runsheet/gala/cue/abc/delay", Address{RunID: "gala", CueID: "abc", Action: "delay"}, false},
		{"/runsheet/gala/cue/abc/delete", Address{RunID: "gala", CueID: "abc", Action: ActionDelete}, false},
		{"/runsheet/gala/cue/abc/explode", Address{}, true},
		{"/runsheet/gala", Address{}, true},
		{"/runsheet//cues", Address{}, true},
		{"/workspace/x/cues", Address{}, true},
		{"/runsheet/gala/bogus", Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, err := ParseAddress(tt.address)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildAndParseAgree(t *testing.T) {
	b := NewOSCAddressBuilder("expo")
	for name, msgType := range CueCommandTypes {
		addr := b.BuildCueAddress(msgType, "cue-9")
		parsed, err := ParseAddress(addr)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if parsed.Action != name || parsed.CueID != "cue-9" || parsed.RunID != "expo" {
			t.Errorf("%s: parsed %+v", name, parsed)
		}
	}
}

func TestAddressReadOnly(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"/runsheet/gala/cues", true},
		{"/runsheet/gala/board", true},
		{"/runsheet/gala/stats", true},
		{"/runsheet/gala/cue/abc", true},
		{"/runsheet/gala/new", false},
		{"/runsheet/gala/reset", false},
		{"/runsheet/gala/cue/abc/start", false},
		{"/runsheet/gala/cue/abc/complete", false},
		{"/runsheet/gala/cue/abc/skip", false},
		{"/runsheet/gala/cue/abc/delay", false},
		{"/runsheet/gala/cue/abc/delete", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			addr, err := ParseAddress(tt.address)
			if err != nil {
				t.Fatal(err)
			}
			if got := addr.ReadOnly(); got != tt.want {
				t.Errorf("ReadOnly = %v, want %v", got, tt.want)
			}
		})
	}
}
