package client

import "github.com/BaSui01/mcpclient/types"

// setInitializeResult 覆盖缓存的握手结果
func (c *Client) setInitializeResult(result *types.InitializeResult) {
	cached := *result
	cached.Capabilities = result.Capabilities.Clone()

	c.capsMu.Lock()
	c.initResult = &cached
	c.capsMu.Unlock()
}

// Capabilities 返回服务端能力的副本；握手成功前返回 false
func (c *Client) Capabilities() (types.ServerCapabilities, bool) {
	c.capsMu.RLock()
	defer c.capsMu.RUnlock()
	if c.initResult == nil {
		return types.ServerCapabilities{}, false
	}
	return c.initResult.Capabilities.Clone(), true
}

// ServerInfo 返回握手时服务端报告的名称与版本
func (c *Client) ServerInfo() (types.Implementation, bool) {
	c.capsMu.RLock()
	defer c.capsMu.RUnlock()
	if c.initResult == nil {
		return types.Implementation{}, false
	}
	return c.initResult.ServerInfo, true
}

// InitializeResult 返回最近一次成功握手结果的副本
func (c *Client) InitializeResult() (*types.InitializeResult, bool) {
	c.capsMu.RLock()
	defer c.capsMu.RUnlock()
	if c.initResult == nil {
		return nil, false
	}
	out := *c.initResult
	out.Capabilities = c.initResult.Capabilities.Clone()
	return &out, true
}
