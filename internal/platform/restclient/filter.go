package restclient

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Where builds the bracketed LoopBack query form: filter[where][field]=value.
func Where(field, value string) url.Values {
	q := url.Values{}
	q.Set("filter[where]["+field+"]", value)
	return q
}

// Page adds bracketed limit/skip/order parameters to q. Zero limit and
// empty order are omitted.
func Page(q url.Values, limit, skip int, order string) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if limit > 0 {
		q.Set("filter[limit]", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("filter[skip]", strconv.Itoa(skip))
	}
	if order != "" {
		q.Set("filter[order]", order)
	}
	return q
}

// Filter is the JSON form of a LoopBack filter, sent as filter=<json>.
type Filter struct {
	Where map[string]any `json:"where,omitempty"`
	Order []string       `json:"order,omitempty"`
	Limit int            `json:"limit,omitempty"`
	Skip  int            `json:"skip,omitempty"`
}

// Values encodes f as a single filter query parameter.
func (f Filter) Values() (url.Values, error) {
	buf, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("filter", string(buf))
	return q, nil
}
