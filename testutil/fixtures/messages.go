// =============================================================================
// 📦 测试数据工厂 - MCP 消息测试数据
// =============================================================================
package fixtures

import (
	"encoding/json"

	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/testutil/mocks"
	"github.com/BaSui01/mcpclient/types"
)

// =============================================================================
// 🎯 握手数据
// =============================================================================

// ClientInfo 返回测试客户端信息
func ClientInfo() types.Implementation {
	return types.Implementation{Name: "mcpclient-test", Version: "0.0.1"}
}

// ServerCapabilities 返回支持 tools 与 resources 的能力声明
func ServerCapabilities() types.ServerCapabilities {
	return types.ServerCapabilities{
		Logging:   &types.LoggingCapability{},
		Resources: &types.ResourcesCapability{Subscribe: true, ListChanged: true},
		Tools:     &types.ToolsCapability{ListChanged: true},
		Experimental: map[string]json.RawMessage{
			"streaming": json.RawMessage(`{"enabled":true}`),
		},
	}
}

// InitializeResult 返回测试服务端的握手结果
func InitializeResult() types.InitializeResult {
	return types.InitializeResult{
		ProtocolVersion: protocol.LatestVersion,
		Capabilities:    ServerCapabilities(),
		ServerInfo:      types.Implementation{Name: "fixture-server", Version: "1.2.3"},
		Instructions:    "use the echo tool",
	}
}

// =============================================================================
// 🔧 工具与资源
// =============================================================================

// Tools 返回预置工具列表
func Tools() []types.Tool {
	return []types.Tool{
		{
			Name:        "echo",
			Description: "Echo the input text",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
		},
		{
			Name:        "add",
			Description: "Add two numbers",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}}}`),
		},
	}
}

// TextResult 返回仅含文本内容的工具结果
func TextResult(isError bool, texts ...string) types.CallToolResult {
	result := types.CallToolResult{IsError: isError, Content: []types.Content{}}
	for _, text := range texts {
		result.Content = append(result.Content, types.Content{Type: types.ContentTypeText, Text: text})
	}
	return result
}

// Resources 返回预置资源列表
func Resources() []types.Resource {
	return []types.Resource{
		{URI: "file:///etc/motd", Name: "motd", MimeType: "text/plain"},
		{URI: "file:///var/data.bin", Name: "data", MimeType: "application/octet-stream"},
	}
}

// =============================================================================
// 🎭 服务端模拟
// =============================================================================

// ServerResponder 模拟一个完整的 MCP 服务端：initialize、ping、tools/list、
// tools/call（echo 返回参数文本，其它工具返回 isError）、resources/list、
// resources/read；未知方法返回 -32601。
func ServerResponder() mocks.Responder {
	return func(req *protocol.Request) []protocol.Message {
		var (
			result any
			resp   *protocol.Response
			err    error
		)
		switch req.Method {
		case protocol.MethodInitialize:
			result = InitializeResult()
		case protocol.MethodPing:
			result = struct{}{}
		case protocol.MethodToolsList:
			result = types.ListToolsResult{Tools: Tools()}
		case protocol.MethodToolsCall:
			result = callTool(req.Params)
		case protocol.MethodResourcesList:
			result = types.ListResourcesResult{Resources: Resources()}
		case protocol.MethodResourcesRead:
			var p types.ReadResourceParams
			_ = json.Unmarshal(req.Params, &p)
			result = types.ReadResourceResult{Contents: []types.ResourceContents{
				{URI: p.URI, MimeType: "text/plain", Text: "contents of " + p.URI},
			}}
		default:
			resp, err = protocol.NewErrorResponse(req.ID, protocol.CodeMethodNotFound, "Method not found", nil)
		}
		if resp == nil {
			resp, err = protocol.NewResultResponse(req.ID, result)
		}
		if err != nil {
			return nil
		}
		return []protocol.Message{resp}
	}
}

func callTool(params json.RawMessage) types.CallToolResult {
	var p struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	_ = json.Unmarshal(params, &p)

	if p.Name == "echo" {
		text, _ := p.Arguments["text"].(string)
		return TextResult(false, text)
	}
	return TextResult(true, "unknown tool: "+p.Name)
}

// =============================================================================
// 📨 噪声消息
// =============================================================================

// Noise 返回与任何客户端请求都不匹配的入站消息
func Noise() []protocol.Message {
	progress, _ := protocol.NewNotification("notifications/progress", map[string]any{"progress": 50})
	stray, _ := protocol.NewResultResponse(protocol.StringID("stray"), map[string]any{})
	ping, _ := protocol.NewRequest(protocol.StringID("srv-1"), protocol.MethodPing, nil)
	return []protocol.Message{progress, stray, ping}
}
