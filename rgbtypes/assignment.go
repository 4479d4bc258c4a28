package rgbtypes

import (
	"fmt"
	"strings"

	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

// AssignmentKind is the type of state an RGB assignment carries.
type AssignmentKind string

const (
	// AssignmentFungible is an amount of a fungible asset.
	AssignmentFungible AssignmentKind = "Fungible"

	// AssignmentNonFungible is a unique token.
	AssignmentNonFungible AssignmentKind = "NonFungible"

	// AssignmentInflationRight is the right to issue more of an asset.
	AssignmentInflationRight AssignmentKind = "InflationRight"

	// AssignmentReplaceRight is the right to replace an asset.
	AssignmentReplaceRight AssignmentKind = "ReplaceRight"

	// AssignmentAny is used by invoices that accept any assignment.
	AssignmentAny AssignmentKind = "Any"
)

var knownAssignmentKinds = []AssignmentKind{
	AssignmentFungible, AssignmentNonFungible, AssignmentInflationRight,
	AssignmentReplaceRight, AssignmentAny,
}

// ParseAssignmentKind maps a provider reported kind onto a known value,
// ignoring case. Unknown kinds are returned unchanged.
func ParseAssignmentKind(raw string) AssignmentKind {
	for _, k := range knownAssignmentKinds {
		if strings.EqualFold(raw, string(k)) {
			return k
		}
	}

	return AssignmentKind(raw)
}

// Known returns true if the kind is one this client understands.
func (k AssignmentKind) Known() bool {
	for _, known := range knownAssignmentKinds {
		if k == known {
			return true
		}
	}

	return false
}

// String returns the kind name, flagging values this client doesn't know.
func (k AssignmentKind) String() string {
	if !k.Known() {
		return fmt.Sprintf("Unknown(%s)", string(k))
	}

	return string(k)
}

// Assignment is a unit of RGB state: for fungible assets Value is an amount in
// the asset's smallest denomination.
type Assignment struct {
	Kind  AssignmentKind
	Value uint64
}

// NewFungible returns a fungible assignment of the given amount.
func NewFungible(amount uint64) Assignment {
	return Assignment{
		Kind:  AssignmentFungible,
		Value: amount,
	}
}

// AssignmentFromRPC converts the wire form of an assignment.
func AssignmentFromRPC(a rgbrpc.Assignment) Assignment {
	return Assignment{
		Kind:  ParseAssignmentKind(a.Type),
		Value: a.Value,
	}
}

// RPC returns the wire form of the assignment.
func (a Assignment) RPC() rgbrpc.Assignment {
	return rgbrpc.Assignment{
		Type:  string(a.Kind),
		Value: a.Value,
	}
}

// String returns a human readable form of the assignment.
func (a Assignment) String() string {
	return fmt.Sprintf("%v(%d)", a.Kind, a.Value)
}
