package client

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/types"
)

// Initialize 执行 MCP 握手：发送 initialize 请求，缓存服务端能力，
// 再发送 notifications/initialized。请求失败时不修改缓存、不发送通知；
// 通知发送失败时缓存已更新，但返回错误。
func (c *Client) Initialize(ctx context.Context, info types.Implementation, caps types.ClientCapabilities) (*types.InitializeResult, error) {
	params := types.InitializeParams{
		ProtocolVersion: c.protocolVersion,
		Capabilities:    caps,
		ClientInfo:      info,
	}

	raw, err := c.Request(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return nil, err
	}

	var result types.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, types.NewSerializationError(protocol.MethodInitialize, err)
	}

	if result.ProtocolVersion != c.protocolVersion {
		c.logger.Warn("server negotiated a different protocol version",
			zap.String("requested", c.protocolVersion),
			zap.String("negotiated", result.ProtocolVersion))
	}

	c.setInitializeResult(&result)

	if err := c.Notify(ctx, protocol.MethodInitialized, nil); err != nil {
		return nil, err
	}

	c.logger.Info("connected to MCP server",
		zap.String("server", result.ServerInfo.Name),
		zap.String("version", result.ServerInfo.Version),
		zap.String("protocol_version", result.ProtocolVersion))

	return &result, nil
}
