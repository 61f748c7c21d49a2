package models

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		u    User
		want string
	}{
		{"username and name", User{Username: "client", FirstName: "Ivan", LastName: "Petrov"}, "@client (Ivan Petrov)"},
		{"username only", User{Username: "client"}, "@client"},
		{"name only", User{FirstName: "Ivan"}, "Ivan"},
		{"nothing", User{}, "—"},
	}
	for _, tt := range tests {
		if got := tt.u.DisplayName(); got != tt.want {
			t.Errorf("%s: DisplayName() = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestStatusVocabulary(t *testing.T) {
	for _, s := range []OrderStatus{StatusNew, StatusInProgress, StatusWaitingClient, StatusReady, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s not valid", s)
		}
		if s.Label() == string(s) {
			t.Errorf("%s has no label", s)
		}
	}
	if OrderStatus("SHIPPED").Valid() {
		t.Error("unknown status reported valid")
	}
	if got := OrderStatus("SHIPPED").Label(); got != "SHIPPED" {
		t.Errorf("unknown label = %q", got)
	}
}
