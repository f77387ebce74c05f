package api

// Config is the merged content of one or more apiout configuration files.
type Config struct {
	// Clients are reusable module/class bindings that APIs may refer to.
	Clients map[string]Client `json:"clients,omitempty"`
	// Serializers are raw named serializer configurations, each of the
	// form {"fields": ...}. Values keep their source key order.
	Serializers map[string]any `json:"serializers,omitempty"`
	// APIs are the endpoints to fetch, in configuration order.
	APIs []API `json:"apis,omitempty"`
}

// Client binds a name to a client implementation.
type Client struct {
	// Module selects the client registry entry (e.g., "http", "sqlite").
	Module string `json:"module"`
	// ClientClass selects the constructor within Module. Defaults to "Client".
	ClientClass string `json:"client_class,omitempty"`
}

// API describes one fetch: which client method to call, with what
// arguments, and how to shape the result.
type API struct {
	// Name identifies the API in output and on the command line.
	Name string `json:"name"`
	// Client optionally names an entry of Config.Clients to inherit
	// Module and ClientClass from.
	Client string `json:"client,omitempty"`
	// Module selects the client registry entry.
	Module string `json:"module,omitempty"`
	// ClientClass selects the constructor within Module.
	ClientClass string `json:"client_class,omitempty"`
	// Method is the client method to invoke.
	Method string `json:"method,omitempty"`
	// URL is passed as the first argument of Method.
	URL string `json:"url,omitempty"`
	// Params is passed as the second argument of Method.
	Params any `json:"params,omitempty"`
	// Serializer is either a name in Config.Serializers or an inline
	// serializer configuration.
	Serializer any `json:"serializer,omitempty"`
}

// Lookup returns the API called name.
func (c *Config) Lookup(name string) (API, bool) {
	for _, a := range c.APIs {
		if a.Name == name {
			return a, true
		}
	}
	return API{}, false
}

// Resolved returns a with Module and ClientClass filled in from the named
// client when a leaves them empty.
func (c *Config) Resolved(a API) API {
	if a.Client == "" {
		return a
	}
	cl, ok := c.Clients[a.Client]
	if !ok {
		return a
	}
	if a.Module == "" {
		a.Module = cl.Module
	}
	if a.ClientClass == "" {
		a.ClientClass = cl.ClientClass
	}
	return a
}
