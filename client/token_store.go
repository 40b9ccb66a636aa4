/*
 * @module client/token_store
 * @description 访问令牌存放单元，显式构造并随应用生命周期传递，不做模块级可变全局量
 * @architecture 适配器模式 - 外部身份服务颁发的令牌在此读写
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 登录回调写入 -> 出站请求读取 -> 过期由外部身份服务驱动更新
 * @rules 身份协议由外部身份服务实现，本服务只持有与透传令牌
 * @dependencies sync
 * @refs client/report_client.go
 */

package client

import "sync"

// TokenStore 访问令牌存放单元
type TokenStore struct {
	mu          sync.RWMutex
	accessToken string
}

// NewTokenStore 创建令牌存放单元
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Set 写入访问令牌
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

// Get 读取访问令牌
func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// HasToken 判断令牌是否存在
func (s *TokenStore) HasToken() bool {
	return s.Get() != ""
}
