package client

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/types"
)

// decodeResult 调用 method 并把 result 解码为 T
func decodeResult[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	raw, err := c.Request(ctx, method, params)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, types.NewSerializationError(method, err)
	}
	return &out, nil
}

// ListTools 列出工具
func (c *Client) ListTools(ctx context.Context) (*types.ListToolsResult, error) {
	return decodeResult[types.ListToolsResult](ctx, c, protocol.MethodToolsList, nil)
}

// CallTool 调用工具。结果带 isError 时返回 TOOL_EXECUTION 错误，
// 消息包含全部文本内容（按顺序以换行拼接）。
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*types.CallToolResult, error) {
	params := types.CallToolParams{Name: name, Arguments: arguments}

	result, err := decodeResult[types.CallToolResult](ctx, c, protocol.MethodToolsCall, params)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, types.NewError(types.ErrToolExecution,
			fmt.Sprintf("tool '%s' execution failed: %s", name, result.Text())).
			WithMethod(protocol.MethodToolsCall)
	}
	return result, nil
}

// GetTool 按名称查找工具，不存在时返回 nil, nil
func (c *Client) GetTool(ctx context.Context, name string) (*types.Tool, error) {
	list, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list.Tools {
		if list.Tools[i].Name == name {
			tool := list.Tools[i]
			return &tool, nil
		}
	}
	return nil, nil
}

// ListResources 列出资源
func (c *Client) ListResources(ctx context.Context) (*types.ListResourcesResult, error) {
	return decodeResult[types.ListResourcesResult](ctx, c, protocol.MethodResourcesList, nil)
}

// ReadResource 读取资源
func (c *Client) ReadResource(ctx context.Context, uri string) (*types.ReadResourceResult, error) {
	return decodeResult[types.ReadResourceResult](ctx, c, protocol.MethodResourcesRead, types.ReadResourceParams{URI: uri})
}

// Ping 检查连接是否存活
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Request(ctx, protocol.MethodPing, nil)
	return err
}

// BatchCallTools 并发调用多个工具，最多 limit 个同时进行（<=0 表示不限）。
// 结果按输入顺序返回；遇到第一个错误时取消其余调用并返回该错误。
// DispatchExclusive 模式下强制串行。
func (c *Client) BatchCallTools(ctx context.Context, calls []types.ToolCall, limit int) ([]*types.CallToolResult, error) {
	if c.mode == DispatchExclusive {
		limit = 1
	}

	results := make([]*types.CallToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, call := range calls {
		g.Go(func() error {
			var args any
			if len(call.Arguments) > 0 {
				args = call.Arguments
			}
			result, err := c.CallTool(gctx, call.Name, args)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
