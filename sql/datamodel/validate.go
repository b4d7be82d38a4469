// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package datamodel

import "fmt"

// Validate checks the structural invariants of the data model: every
// relation field has a partner on the referenced model carrying the
// same relation name, exactly one side of a relation owns the foreign
// key (many-to-many relations, list on both sides, own none), and a model carries at most one of a single id field or a
// compound id. Commented-out models are skipped; they only exist for
// round-tripping.
func Validate(d *Datamodel) error {
	for _, m := range d.Models {
		if m.IsCommentedOut {
			continue
		}
		var ids int
		for _, f := range m.ScalarFields() {
			if f.IsID {
				ids++
			}
		}
		switch {
		case ids > 1:
			return fmt.Errorf("datamodel: model %q has more than one id field", m.Name)
		case ids == 1 && len(m.IDFields) > 0:
			return fmt.Errorf("datamodel: model %q has both an id field and compound id fields", m.Name)
		}
		for _, name := range m.IDFields {
			if _, ok := m.ScalarField(name); !ok {
				return fmt.Errorf("datamodel: model %q compound id references unknown field %q", m.Name, name)
			}
		}
		for _, rf := range m.RelationFields() {
			other, ok := d.Model(rf.Info.To)
			if !ok {
				return fmt.Errorf("datamodel: relation field %q.%q references unknown model %q", m.Name, rf.Name, rf.Info.To)
			}
			partner, ok := relationPartner(other, m.Name, rf.Info.Name, rf)
			if !ok {
				return fmt.Errorf("datamodel: relation %q on %q.%q has no partner field on model %q", rf.Info.Name, m.Name, rf.Name, other.Name)
			}
			// Many-to-many relations own no foreign key on either side.
			if rf.Arity == List && partner.Arity == List {
				continue
			}
			if rf.OwnsRelation() == partner.OwnsRelation() {
				return fmt.Errorf("datamodel: relation %q between %q and %q must be owned by exactly one side", rf.Info.Name, m.Name, other.Name)
			}
		}
	}
	return nil
}

func relationPartner(other *Model, back, relation string, self *RelationField) (*RelationField, bool) {
	for _, rf := range other.RelationFields() {
		if rf == self {
			continue
		}
		if rf.Info.To == back && rf.Info.Name == relation {
			return rf, true
		}
	}
	return nil, false
}
