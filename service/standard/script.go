/*
 * @module service/standard/script
 * @description 自定义判定脚本执行器，基于yaegi解释执行标准的自定义合格判定逻辑
 * @architecture 解释器模式 - 脚本编译缓存后按需调用
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow 脚本哈希查缓存 -> 未命中则编译 -> 调用Judge入口
 * @rules 脚本必须定义 Judge(result float64) bool；编译失败或执行panic视为判定不合格
 * @dependencies github.com/traefik/yaegi
 * @refs service/standard/service.go
 */

package standard

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// JudgeFunc 编译后的判定函数
type JudgeFunc func(result float64) bool

// ScriptExecutor 判定脚本执行器，编译结果按脚本哈希缓存
type ScriptExecutor struct {
	mu    sync.RWMutex
	cache map[string]JudgeFunc
}

// NewScriptExecutor 创建判定脚本执行器
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{
		cache: make(map[string]JudgeFunc),
	}
}

// Judge 执行自定义判定脚本
// 脚本需定义 Judge(result float64) bool，返回是否合格
func (e *ScriptExecutor) Judge(script string, result float64) (passed bool, err error) {
	if script == "" {
		return false, fmt.Errorf("判定脚本为空")
	}

	sum := sha1.Sum([]byte(script))
	hash := hex.EncodeToString(sum[:])

	e.mu.RLock()
	fn, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		fn, err = e.compile(script)
		if err != nil {
			return false, fmt.Errorf("脚本编译失败: %w", err)
		}
		e.mu.Lock()
		e.cache[hash] = fn
		e.mu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			passed = false
			err = fmt.Errorf("脚本执行异常: %v", r)
		}
	}()

	return fn(result), nil
}

// compile 编译脚本为可执行的判定函数
func (e *ScriptExecutor) compile(script string) (JudgeFunc, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	wrapped := fmt.Sprintf(`
package main

import (
	"math"
	"strconv"
	"strings"
)

var _ = math.Abs
var _ = strconv.Itoa
var _ = strings.TrimSpace

%s
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, err
	}

	v, err := i.Eval("main.Judge")
	if err != nil {
		return nil, fmt.Errorf("脚本未定义 Judge 函数: %w", err)
	}

	fn, ok := v.Interface().(func(float64) bool)
	if !ok {
		return nil, fmt.Errorf("Judge 函数签名必须为 func(float64) bool")
	}

	return fn, nil
}
