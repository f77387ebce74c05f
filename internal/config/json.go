package config

import (
	"fmt"

	"github.com/agentic-research/apiout/api"
	"github.com/agentic-research/apiout/internal/serializer"
)

// parseJSON decodes a JSON configuration of the form
// {"clients": {...}, "serializers": {...}, "apis": [...]}.
func parseJSON(filename string, src []byte) (*api.Config, error) {
	doc, err := serializer.DecodeJSON(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON file %s: %w", filename, err)
	}
	root, ok := doc.(*serializer.Object)
	if !ok {
		return nil, fmt.Errorf("JSON file %s: top level must be an object", filename)
	}

	cfg := &api.Config{}
	if raw, ok := root.Get("clients"); ok && raw != nil {
		clients, ok := raw.(*serializer.Object)
		if !ok {
			return nil, fmt.Errorf("JSON file %s: clients must be an object", filename)
		}
		cfg.Clients = make(map[string]api.Client, clients.Len())
		for p := clients.Oldest(); p != nil; p = p.Next() {
			entry, ok := p.Value.(*serializer.Object)
			if !ok {
				return nil, fmt.Errorf("JSON file %s: client %q must be an object", filename, p.Key)
			}
			cfg.Clients[p.Key] = api.Client{
				Module:      stringField(entry, "module"),
				ClientClass: stringField(entry, "client_class"),
			}
		}
	}
	if raw, ok := root.Get("serializers"); ok && raw != nil {
		serializers, ok := raw.(*serializer.Object)
		if !ok {
			return nil, fmt.Errorf("JSON file %s: serializers must be an object", filename)
		}
		cfg.Serializers = make(map[string]any, serializers.Len())
		for p := serializers.Oldest(); p != nil; p = p.Next() {
			cfg.Serializers[p.Key] = p.Value
		}
	}
	if raw, ok := root.Get("apis"); ok && raw != nil {
		apis, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("JSON file %s: apis must be a list", filename)
		}
		for i, item := range apis {
			entry, ok := item.(*serializer.Object)
			if !ok {
				return nil, fmt.Errorf("JSON file %s: apis[%d] must be an object", filename, i)
			}
			params, _ := entry.Get("params")
			ser, _ := entry.Get("serializer")
			cfg.APIs = append(cfg.APIs, api.API{
				Name:        stringField(entry, "name"),
				Client:      stringField(entry, "client"),
				Module:      stringField(entry, "module"),
				ClientClass: stringField(entry, "client_class"),
				Method:      stringField(entry, "method"),
				URL:         stringField(entry, "url"),
				Params:      params,
				Serializer:  ser,
			})
		}
	}
	return cfg, nil
}

func stringField(obj *serializer.Object, key string) string {
	v, _ := obj.Get(key)
	s, _ := v.(string)
	return s
}
