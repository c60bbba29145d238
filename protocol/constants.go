package protocol

const (
	// JSONRPCVersion is the only accepted value of the jsonrpc member.
	JSONRPCVersion = "2.0"

	// LatestVersion is the MCP protocol revision sent during initialize.
	LatestVersion = "2024-11-05"
)

// Method names used by the client.
const (
	MethodInitialize    = "initialize"
	MethodInitialized   = "notifications/initialized"
	MethodPing          = "ping"
	MethodToolsList     = "tools/list"
	MethodToolsCall     = "tools/call"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
)

// 标准错误码
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)
