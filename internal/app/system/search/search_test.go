package search

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestIsEmail(t *testing.T) {
	tests := []struct {
		q    string
		want bool
	}{
		{"ona@namai.lt", true},
		{"@namai", true},
		{"ona@", true},
		{"Ona Onaitė", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsEmail(tt.q); got != tt.want {
			t.Errorf("IsEmail(%q) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("full_name_ci", "  "); got != nil {
		t.Errorf("empty query gave %v", got)
	}
	got := Prefix("full_name_ci", "Onaite")
	rng, ok := got["full_name_ci"].(bson.M)
	if !ok {
		t.Fatalf("missing range in %v", got)
	}
	if rng["$gte"] != "onaite" || rng["$lt"] != "onaite\uffff" {
		t.Errorf("range = %v", rng)
	}
}

func TestPeople(t *testing.T) {
	if got := People("", "full_name_ci", "email"); got != nil {
		t.Errorf("empty query gave %v", got)
	}

	byEmail := People(" Ona@Namai ", "full_name_ci", "email")
	if _, ok := byEmail["email"]; !ok {
		t.Errorf("email search should filter on email only, got %v", byEmail)
	}
	if _, ok := byEmail["$or"]; ok {
		t.Errorf("email search should not match names, got %v", byEmail)
	}

	byName := People("ona", "full_name_ci", "email")
	or, ok := byName["$or"].([]bson.M)
	if !ok || len(or) != 2 {
		t.Fatalf("name search = %v", byName)
	}
}

func TestPeopleSort(t *testing.T) {
	if got := PeopleSort("ona@", "full_name_ci", "email"); got[0].Key != "email" {
		t.Errorf("email search sorted by %s", got[0].Key)
	}
	if got := PeopleSort("ona", "full_name_ci", "email"); got[0].Key != "full_name_ci" {
		t.Errorf("name search sorted by %s", got[0].Key)
	}
}
