package handler

// filter.go implements the "filter" argument of connections, eg:
//   issues(filter: { team: { id: { eq: "T1" } }, title: { containsIgnoreCase: "login" } })

import (
	"fmt"
	"strings"
)

// filter returns the objects that match the filter (all of them if there is no filter)
func (op *gqlOperation) filter(objects []Object, filter interface{}) ([]Object, error) {
	if filter == nil {
		return objects, nil
	}
	f, ok := filter.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("Argument Validation Error: filter must be an object, not %T", filter)
	}
	var r []Object
	for _, obj := range objects {
		match, err := op.match(obj, f)
		if err != nil {
			return nil, err
		}
		if match {
			r = append(r, obj)
		}
	}
	return r, nil
}

// match checks if an object matches all the conditions of a filter
func (op *gqlOperation) match(obj Object, filter map[string]interface{}) (bool, error) {
	for key, cond := range filter {
		if key == "and" || key == "or" {
			return false, fmt.Errorf("Argument Validation Error: %q filters are not supported", key)
		}
		c, ok := cond.(map[string]interface{})
		if !ok {
			return false, fmt.Errorf("Argument Validation Error: filter on %q must be an object", key)
		}
		var match bool
		var err error
		if collection, isRef := refs[key]; isRef {
			// filter on a related object, eg team: { key: { eq: "ENG" } }
			id, _ := obj[key+"Id"].(string)
			if related := op.h.data.find(collection, id); related != nil && id != "" {
				match, err = op.match(related, c)
			}
		} else {
			match, err = compare(obj[key], c)
		}
		if err != nil || !match {
			return false, err
		}
	}
	return true, nil
}

// compare applies the comparators (eq, in, etc) of a condition to a value
func compare(v interface{}, cond map[string]interface{}) (bool, error) {
	for comparator, operand := range cond {
		var ok bool
		switch comparator {
		case "eq":
			ok = equal(v, operand)
		case "neq":
			ok = !equal(v, operand)
		case "in", "nin":
			list, isList := operand.([]interface{})
			if !isList {
				return false, fmt.Errorf("Argument Validation Error: %q needs a list", comparator)
			}
			for _, elt := range list {
				if equal(v, elt) {
					ok = true
					break
				}
			}
			if comparator == "nin" {
				ok = !ok
			}
		case "null":
			ok = (v == nil) == (operand == true)
		case "contains", "containsIgnoreCase", "startsWith":
			s, _ := v.(string)
			sub, _ := operand.(string)
			switch comparator {
			case "contains":
				ok = strings.Contains(s, sub)
			case "containsIgnoreCase":
				ok = strings.Contains(strings.ToLower(s), strings.ToLower(sub))
			default:
				ok = strings.HasPrefix(s, sub)
			}
		default:
			return false, fmt.Errorf("Argument Validation Error: unknown comparator %q", comparator)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// equal compares scalars, treating all numbers as float64
func equal(a, b interface{}) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	switch a.(type) {
	case string, bool, nil:
		return a == b
	}
	return false
}

func number(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
