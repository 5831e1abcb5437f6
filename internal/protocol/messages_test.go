package protocol

import "testing"

func TestParseClientMessageInitSim(t *testing.T) {
	raw := []byte(`{"type":"INIT_SIM","config":{"size":"SMALL","terrain":"COASTAL","disaster":"FLOOD","seed":42}}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage failed: %v", err)
	}
	if msg.Type != ClientInitSim {
		t.Errorf("Expected INIT_SIM, got %s", msg.Type)
	}
	if msg.Config == nil || msg.Config.Disaster != "FLOOD" || msg.Config.Seed != 42 {
		t.Errorf("Expected config to decode, got %+v", msg.Config)
	}
}

func TestParseClientMessageIntervention(t *testing.T) {
	raw := []byte(`{"type":"INTERVENTION","kind":"official_alert","message":"sirens on"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage failed: %v", err)
	}
	if msg.Kind != "official_alert" || msg.Message != "sirens on" {
		t.Errorf("Expected intervention fields to decode, got %+v", msg)
	}
}

func TestParseClientMessageRejectsGarbage(t *testing.T) {
	if _, err := ParseClientMessage([]byte("not json")); err == nil {
		t.Error("Expected an error for a non-JSON command")
	}
}

func TestValidSpeed(t *testing.T) {
	for _, speed := range []int{1, 5, 20, 60} {
		if !ValidSpeed(speed) {
			t.Errorf("Expected %dx to be a supported preset", speed)
		}
	}
	for _, speed := range []int{0, -1, 2, 100} {
		if ValidSpeed(speed) {
			t.Errorf("Expected %dx to be rejected", speed)
		}
	}
}
