package types

import "encoding/json"

// Implementation identifies a client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities is what the client advertises during initialize.
type ClientCapabilities struct {
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
	Roots        *RootsCapability           `json:"roots,omitempty"`
	Sampling     *SamplingCapability        `json:"sampling,omitempty"`
}

// RootsCapability represents roots-specific capabilities.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability represents sampling-specific capabilities.
type SamplingCapability struct{}

// ServerCapabilities is the feature set negotiated by the handshake.
type ServerCapabilities struct {
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
	Logging      *LoggingCapability         `json:"logging,omitempty"`
	Prompts      *PromptsCapability         `json:"prompts,omitempty"`
	Resources    *ResourcesCapability       `json:"resources,omitempty"`
	Tools        *ToolsCapability           `json:"tools,omitempty"`
}

// LoggingCapability represents logging-specific capabilities.
type LoggingCapability struct{}

// PromptsCapability represents prompts-specific capabilities.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability represents resources-specific capabilities.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolsCapability represents tools-specific capabilities.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SupportsTools reports whether the server advertised tools.
func (c ServerCapabilities) SupportsTools() bool { return c.Tools != nil }

// SupportsResources reports whether the server advertised resources.
func (c ServerCapabilities) SupportsResources() bool { return c.Resources != nil }

// SupportsPrompts reports whether the server advertised prompts.
func (c ServerCapabilities) SupportsPrompts() bool { return c.Prompts != nil }

// Clone returns a deep copy; the result shares no pointers with c.
func (c ServerCapabilities) Clone() ServerCapabilities {
	out := ServerCapabilities{}
	if c.Experimental != nil {
		out.Experimental = make(map[string]json.RawMessage, len(c.Experimental))
		for k, v := range c.Experimental {
			out.Experimental[k] = append(json.RawMessage(nil), v...)
		}
	}
	if c.Logging != nil {
		out.Logging = &LoggingCapability{}
	}
	if c.Prompts != nil {
		p := *c.Prompts
		out.Prompts = &p
	}
	if c.Resources != nil {
		r := *c.Resources
		out.Resources = &r
	}
	if c.Tools != nil {
		tc := *c.Tools
		out.Tools = &tc
	}
	return out
}

// InitializeParams is sent with the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the server's answer to initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}
