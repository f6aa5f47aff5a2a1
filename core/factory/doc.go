// Package factory provides a small generic registry used to instantiate
// pluggable modules (balancing policies, round log stores, metrics sinks)
// from configuration. A module is described by a type string and a map of raw
// settings; its factory decodes the settings into a typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[balancing.Policy]()
//	reg.Register("linear", func(conf map[string]any) (balancing.Policy, error) {
//	    var c struct{ DollarsPerPoint float64 `json:"dollars_per_point"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return balancing.Linear{DollarsPerPoint: c.DollarsPerPoint}, nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "linear", Conf: map[string]any{"dollars_per_point": 5000}})
package factory
