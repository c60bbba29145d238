// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 mcpclient 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertRequestIDs / AssertClosed
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForValue

# 子包

  - testutil/mocks: MockTransport，脚本化的 transport.Transport，
    支持 responder、入站注入、错误注入与发送记录
  - testutil/fixtures: 预置的 initialize 结果、工具列表、资源与响应消息

# 使用示例

	ctx := testutil.TestContext(t)
	tr := mocks.NewMockTransport().WithResponder(fixtures.ServerResponder())
	c := client.New(tr)
	_, err := c.Initialize(ctx, fixtures.ClientInfo(), types.ClientCapabilities{})
*/
package testutil
