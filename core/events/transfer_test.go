package events

import (
	"testing"

	"nftmarket/crypto"
)

func TestTransferEventAttributes(t *testing.T) {
	evt := Transfer{
		Mint:        [20]byte{1},
		Source:      [20]byte{2},
		Destination: [20]byte{3},
		Authority:   [20]byte{4},
		Amount:      975,
		Delegated:   true,
	}
	rendered := Render(evt)
	if rendered.Type != TypeTransfer {
		t.Fatalf("unexpected type %s", rendered.Type)
	}
	if rendered.Attributes["amount"] != "975" {
		t.Fatalf("unexpected amount %s", rendered.Attributes["amount"])
	}
	if rendered.Attributes["source"] != crypto.FormatAddress([20]byte{2}) {
		t.Fatalf("unexpected source %s", rendered.Attributes["source"])
	}
	if rendered.Attributes["delegated"] != "true" {
		t.Fatalf("expected delegated flag")
	}
}

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func TestRenderUntypedEvent(t *testing.T) {
	rendered := Render(bareEvent{})
	if rendered.Type != "bare" || len(rendered.Attributes) != 0 {
		t.Fatalf("unexpected rendering %+v", rendered)
	}
	if Render(nil) != nil {
		t.Fatalf("expected nil rendering for nil event")
	}
}
