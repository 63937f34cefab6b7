package ast

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownNode is returned when decoding a node whose type tag is not part of the tree.
var ErrUnknownNode = errors.New("unknown node type")

// Node JSON uses a "type" discriminator with the field names the tooling has always
// exchanged: {"type":"Call","callee":"ta.sma","args":[...]}.

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
	}{"Number", n.Value})
}

func (n String) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{"String", n.Value})
}

func (n Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"Identifier", n.Name})
}

func (n Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Items []Expr `json:"items"`
	}{"Array", nonNil(n.Items)})
}

func (n Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Target Expr   `json:"target"`
		Index  Expr   `json:"index"`
	}{"Index", n.Target, n.Index})
}

func (n Unary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Op   string `json:"op"`
		Expr Expr   `json:"expr"`
	}{"Unary", n.Op, n.Expr})
}

func (n Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Op    string `json:"op"`
		Left  Expr   `json:"left"`
		Right Expr   `json:"right"`
	}{"Binary", n.Op, n.Left, n.Right})
}

func (n Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Callee string `json:"callee"`
		Args   []Expr `json:"args"`
	}{"Call", n.Callee, nonNil(n.Args)})
}

func nonNil(items []Expr) []Expr {
	if items == nil {
		return []Expr{}
	}
	return items
}

type programJSON struct {
	Indicators  []string         `json:"indicators"`
	Assignments []assignmentJSON `json:"assignments"`
}

type assignmentJSON struct {
	ID   string          `json:"id"`
	Expr json.RawMessage `json:"expr"`
}

func (p Program) MarshalJSON() ([]byte, error) {
	out := programJSON{
		Indicators:  p.Indicators,
		Assignments: make([]assignmentJSON, 0, len(p.Assignments)),
	}
	if out.Indicators == nil {
		out.Indicators = []string{}
	}
	for _, a := range p.Assignments {
		raw, err := json.Marshal(a.Expr)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		out.Assignments = append(out.Assignments, assignmentJSON{ID: a.ID, Expr: raw})
	}
	return json.Marshal(out)
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var in programJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	prog := Program{Indicators: in.Indicators}
	for i, a := range in.Assignments {
		e, err := DecodeExpr(a.Expr)
		if err != nil {
			return fmt.Errorf("assignment %d (%s): %w", i, a.ID, err)
		}
		prog.Assignments = append(prog.Assignments, Assignment{ID: a.ID, Expr: e})
	}
	*p = prog
	return nil
}

type rawNode struct {
	Type   string            `json:"type"`
	Value  json.RawMessage   `json:"value"`
	Name   string            `json:"name"`
	Items  []json.RawMessage `json:"items"`
	Target json.RawMessage   `json:"target"`
	Index  json.RawMessage   `json:"index"`
	Op     string            `json:"op"`
	Expr   json.RawMessage   `json:"expr"`
	Left   json.RawMessage   `json:"left"`
	Right  json.RawMessage   `json:"right"`
	Callee string            `json:"callee"`
	Args   []json.RawMessage `json:"args"`
}

// DecodeExpr rebuilds an expression from its JSON form.
func DecodeExpr(data []byte) (Expr, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var n rawNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	switch n.Type {
	case "Number":
		var v float64
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("number value: %w", err)
		}
		return Number{Value: v}, nil
	case "String":
		var v string
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("string value: %w", err)
		}
		return String{Value: v}, nil
	case "Identifier":
		return Identifier{Name: n.Name}, nil
	case "Array":
		items, err := decodeList(n.Items)
		if err != nil {
			return nil, err
		}
		return Array{Items: items}, nil
	case "Index":
		target, err := DecodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		idx, err := DecodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return Index{Target: target, Index: idx}, nil
	case "Unary":
		e, err := DecodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return Unary{Op: n.Op, Expr: e}, nil
	case "Binary":
		left, err := DecodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return Binary{Op: n.Op, Left: left, Right: right}, nil
	case "Call":
		args, err := decodeList(n.Args)
		if err != nil {
			return nil, err
		}
		return Call{Callee: n.Callee, Args: args}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownNode, n.Type)
	}
}

func decodeList(raw []json.RawMessage) ([]Expr, error) {
	out := make([]Expr, 0, len(raw))
	for _, r := range raw {
		e, err := DecodeExpr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
