// internal/app/system/search/search.go
package search

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
)

// IsEmail reports whether a list search was typed as an email address
// (or a fragment of one). Such searches match and sort on the email
// field instead of the folded name.
func IsEmail(q string) bool {
	return strings.Contains(q, "@")
}

// Prefix returns a range filter matching values of field that start with
// the folded q. It returns nil for an empty query.
func Prefix(field, q string) bson.M {
	fq := text.Fold(q)
	if fq == "" {
		return nil
	}
	return bson.M{field: bson.M{"$gte": fq, "$lt": fq + "\uffff"}}
}

// People builds the ?q= clause for lists of people: email searches hit the
// unique email index only; anything else matches name or email.
func People(q, nameField, emailField string) bson.M {
	if IsEmail(q) {
		return Prefix(emailField, strings.ToLower(strings.TrimSpace(q)))
	}
	byName := Prefix(nameField, q)
	if byName == nil {
		return nil
	}
	return bson.M{"$or": []bson.M{byName, Prefix(emailField, q)}}
}

// PeopleSort orders a people list by name, or by email when the search is
// an email address so the scan follows the same index as the filter.
func PeopleSort(q, nameField, emailField string) bson.D {
	if IsEmail(q) {
		return bson.D{{Key: emailField, Value: 1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: nameField, Value: 1}, {Key: "_id", Value: 1}}
}
