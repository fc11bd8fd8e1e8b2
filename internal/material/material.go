package material

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/specialistvlad/simgridgo/internal/jobgraph"
)

// Type is the wire discriminant of a material model.
type Type string

const (
	TypeIsotropic             Type = "isotropic"
	TypeTransverselyIsotropic Type = "transversely_isotropic"
	TypeOrthotropic           Type = "orthotropic"
)

// Types lists every supported model.
func Types() []Type {
	return []Type{TypeIsotropic, TypeTransverselyIsotropic, TypeOrthotropic}
}

// Elastic is implemented by every material model.
type Elastic interface {
	Type() Type
	Validate() error
}

// Isotropic is described by a single Young's modulus and Poisson ratio.
type Isotropic struct {
	YoungModulus float64  `json:"young_modulus"`
	PoissonRatio float64  `json:"poisson_ratio"`
	Density      *float64 `json:"density,omitempty"`
}

func (Isotropic) Type() Type { return TypeIsotropic }

func (m Isotropic) Validate() error {
	var errs []error
	errs = append(errs, positive("young_modulus", m.YoungModulus))
	if !(m.PoissonRatio > -1 && m.PoissonRatio < 0.5) {
		errs = append(errs, fmt.Errorf("poisson_ratio %g must lie in (-1, 0.5)", m.PoissonRatio))
	}
	errs = append(errs, density(m.Density))
	return errors.Join(errs...)
}

// TransverselyIsotropic has axis 1 as the symmetry axis, as for a
// unidirectional fiber.
type TransverselyIsotropic struct {
	E1      float64  `json:"e1"`
	E2      float64  `json:"e2"`
	G12     float64  `json:"g12"`
	Nu12    float64  `json:"nu12"`
	Nu23    float64  `json:"nu23"`
	Density *float64 `json:"density,omitempty"`
}

func (TransverselyIsotropic) Type() Type { return TypeTransverselyIsotropic }

func (m TransverselyIsotropic) Validate() error {
	var errs []error
	errs = append(errs,
		positive("e1", m.E1),
		positive("e2", m.E2),
		positive("g12", m.G12),
	)
	if !(m.Nu23 > -1 && m.Nu23 < 1) {
		errs = append(errs, fmt.Errorf("nu23 %g must lie in (-1, 1)", m.Nu23))
	}
	if m.E1 > 0 && m.E2 > 0 {
		errs = append(errs, ratioBound("nu12", m.Nu12, m.E1, m.E2))
	}
	errs = append(errs, density(m.Density))
	return errors.Join(errs...)
}

// Orthotropic carries the nine independent constants of an orthotropic solid.
type Orthotropic struct {
	E1      float64  `json:"e1"`
	E2      float64  `json:"e2"`
	E3      float64  `json:"e3"`
	G12     float64  `json:"g12"`
	G13     float64  `json:"g13"`
	G23     float64  `json:"g23"`
	Nu12    float64  `json:"nu12"`
	Nu13    float64  `json:"nu13"`
	Nu23    float64  `json:"nu23"`
	Density *float64 `json:"density,omitempty"`
}

func (Orthotropic) Type() Type { return TypeOrthotropic }

func (m Orthotropic) Validate() error {
	var errs []error
	errs = append(errs,
		positive("e1", m.E1),
		positive("e2", m.E2),
		positive("e3", m.E3),
		positive("g12", m.G12),
		positive("g13", m.G13),
		positive("g23", m.G23),
	)
	if m.E1 > 0 && m.E2 > 0 && m.E3 > 0 {
		errs = append(errs,
			ratioBound("nu12", m.Nu12, m.E1, m.E2),
			ratioBound("nu13", m.Nu13, m.E1, m.E3),
			ratioBound("nu23", m.Nu23, m.E2, m.E3),
		)
	}
	errs = append(errs, density(m.Density))
	return errors.Join(errs...)
}

func positive(field string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a positive finite number, got %g", field, v)
	}
	return nil
}

// ratioBound enforces |nu_ij| < sqrt(E_i / E_j).
func ratioBound(field string, nu, ei, ej float64) error {
	limit := math.Sqrt(ei / ej)
	if math.Abs(nu) >= limit {
		return fmt.Errorf("%s %g must satisfy |%s| < %.4g", field, nu, field, limit)
	}
	return nil
}

func density(d *float64) error {
	if d == nil {
		return nil
	}
	return positive("density", *d)
}

// Marshal encodes m with its type discriminant.
func Marshal(m Elastic) (json.RawMessage, error) {
	if m == nil {
		return nil, errors.New("material: nil model")
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(m.Type())
	fields["type"] = tag
	return json.Marshal(fields)
}

// Decode parses a tagged model and validates it.
func Decode(raw []byte) (Elastic, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("material: %w", err)
	}
	var m Elastic
	switch head.Type {
	case TypeIsotropic:
		var v Isotropic
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		m = v
	case TypeTransverselyIsotropic:
		var v TransverselyIsotropic
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		m = v
	case TypeOrthotropic:
		var v Orthotropic
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		m = v
	case "":
		return nil, errors.New("material: missing type")
	default:
		return nil, fmt.Errorf("material: unknown type %q", head.Type)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("material %s: %w", m.Type(), err)
	}
	return m, nil
}

// strictUnmarshal rejects fields that belong to another model.
func strictUnmarshal(raw []byte, v any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("material: %w", err)
	}
	delete(fields, "type")
	clean, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("material: %w", err)
	}
	return nil
}

// Bind validates m and turns it into a named graph material.
func Bind(name string, m Elastic) (jobgraph.Material, error) {
	if err := m.Validate(); err != nil {
		return jobgraph.Material{}, fmt.Errorf("material %q: %w", name, err)
	}
	props, err := Marshal(m)
	if err != nil {
		return jobgraph.Material{}, fmt.Errorf("material %q: %w", name, err)
	}
	return jobgraph.Material{Name: name, Properties: props}, nil
}
