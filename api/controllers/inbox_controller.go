/*
 * @module api/controllers/inbox_controller
 * @description 设备报文收件箱控制器，提供报文列表、字段查看、人工修复、丢弃与HTTP直传接入接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules HTTP直传接口走设备凭证校验而非用户令牌；不可解析报文只读展示
 * @dependencies service/inbox, service/models
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"columnqc-service/service"
	"columnqc-service/service/inbox"
	"columnqc-service/service/models"
)

// InboxController 设备报文收件箱控制器
type InboxController struct {
	inboxService *inbox.Service
}

// NewInboxController 创建收件箱控制器
func NewInboxController() *InboxController {
	return &InboxController{
		inboxService: service.GlobalInboxService,
	}
}

// SaveFixRequest 保存修复请求
type SaveFixRequest struct {
	Fields   map[string]string `json:"fields" binding:"required"`
	Operator string            `json:"operator" example:"operator01"`
}

// DiscardRequest 丢弃报文请求
type DiscardRequest struct {
	Operator string `json:"operator" example:"operator01"`
}

// ListMessages 查询收件箱报文列表
// @Summary 查询收件箱报文列表
// @Description 分页查询设备报文，支持状态与设备序列号过滤
// @Tags 设备报文收件箱
// @Produce json
// @Param status query string false "状态" Enums(pending,fixed,discarded)
// @Param device_sn query string false "设备序列号"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse{data=[]models.DeviceMessageInbox}
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /inbox/messages [get]
func (c *InboxController) ListMessages(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	filter := inbox.ListFilter{
		Status:   r.URL.Query().Get("status"),
		DeviceSN: r.URL.Query().Get("device_sn"),
		Page:     page,
		Size:     size,
	}

	messages, total, err := c.inboxService.ListMessages(r.Context(), filter)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询收件箱报文失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse(messages, total, filter.Page, filter.Size))
}

// GetMessage 查询报文详情
// @Summary 查询报文详情
// @Description 按ID查询单条报文的原始与修复内容
// @Tags 设备报文收件箱
// @Produce json
// @Param id path string true "报文ID"
// @Success 200 {object} APIResponse{data=models.DeviceMessageInbox}
// @Failure 404 {object} APIResponse "报文不存在"
// @Router /inbox/messages/{id} [get]
func (c *InboxController) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := c.inboxService.GetMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, inbox.ErrMessageNotFound) {
			render.JSON(w, r, NotFoundResponse("收件箱报文不存在"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("查询报文失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", msg))
}

// GetFields 查询报文可编辑字段
// @Summary 查询报文可编辑字段
// @Description 把报文展平为点分路径键值对供逐字段修正；不可解析报文降级为整体文本
// @Tags 设备报文收件箱
// @Produce json
// @Param id path string true "报文ID"
// @Success 200 {object} APIResponse{data=inbox.MessageFields}
// @Failure 404 {object} APIResponse "报文不存在"
// @Router /inbox/messages/{id}/fields [get]
func (c *InboxController) GetFields(w http.ResponseWriter, r *http.Request) {
	fields, err := c.inboxService.GetFields(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, inbox.ErrMessageNotFound) {
			render.JSON(w, r, NotFoundResponse("收件箱报文不存在"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("查询报文字段失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", fields))
}

// SaveFix 保存报文修复
// @Summary 保存报文修复
// @Description 应用人工字段修正并重建报文，柱序列号字段只读
// @Tags 设备报文收件箱
// @Accept json
// @Produce json
// @Param id path string true "报文ID"
// @Param request body SaveFixRequest true "字段修正"
// @Success 200 {object} APIResponse{data=models.DeviceMessageInbox} "修复成功"
// @Failure 400 {object} APIResponse "报文不可修复"
// @Failure 404 {object} APIResponse "报文不存在"
// @Router /inbox/messages/{id}/fix [post]
func (c *InboxController) SaveFix(w http.ResponseWriter, r *http.Request) {
	var req SaveFixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}
	if len(req.Fields) == 0 {
		render.JSON(w, r, BadRequestResponse("字段修正不能为空", nil))
		return
	}

	msg, err := c.inboxService.SaveFix(r.Context(), chi.URLParam(r, "id"), req.Fields, req.Operator)
	if err != nil {
		switch {
		case errors.Is(err, inbox.ErrMessageNotFound):
			render.JSON(w, r, NotFoundResponse("收件箱报文不存在"))
		case errors.Is(err, inbox.ErrMessageNotFixable):
			render.JSON(w, r, BadRequestResponse("报文不可修复", err))
		default:
			render.JSON(w, r, InternalErrorResponse("保存修复失败", err))
		}
		return
	}

	render.JSON(w, r, SuccessResponse("保存修复成功", msg))
}

// Discard 丢弃报文
// @Summary 丢弃报文
// @Description 把待处理报文标记为已丢弃
// @Tags 设备报文收件箱
// @Accept json
// @Produce json
// @Param id path string true "报文ID"
// @Param request body DiscardRequest true "操作人"
// @Success 200 {object} APIResponse "丢弃成功"
// @Failure 400 {object} APIResponse "报文已处理"
// @Router /inbox/messages/{id}/discard [post]
func (c *InboxController) Discard(w http.ResponseWriter, r *http.Request) {
	var req DiscardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if err := c.inboxService.Discard(r.Context(), chi.URLParam(r, "id"), req.Operator); err != nil {
		if errors.Is(err, inbox.ErrMessageNotFound) {
			render.JSON(w, r, NotFoundResponse("收件箱报文不存在"))
			return
		}
		render.JSON(w, r, BadRequestResponse("丢弃报文失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("丢弃报文成功", nil))
}

// IngestHTTP 设备HTTP直传接入
// @Summary 设备HTTP直传接入
// @Description 无网关直连的检测仪经此接口上报遥测报文，使用设备凭证而非用户令牌鉴权
// @Tags 设备报文收件箱
// @Accept json
// @Produce json
// @Param X-Access-Key header string true "设备AccessKey"
// @Param X-Access-Secret header string true "设备密钥"
// @Param payload body string true "设备报文"
// @Success 200 {object} APIResponse{data=models.DeviceMessageInbox} "接入成功"
// @Failure 401 {object} APIResponse "设备凭证无效"
// @Router /inbox/ingest [post]
func (c *InboxController) IngestHTTP(w http.ResponseWriter, r *http.Request) {
	accessKey := r.Header.Get("X-Access-Key")
	secret := r.Header.Get("X-Access-Secret")

	cred, err := c.inboxService.VerifyCredential(r.Context(), accessKey, secret)
	if err != nil {
		if errors.Is(err, inbox.ErrCredentialInvalid) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, UnauthorizedResponse("设备凭证无效"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("校验设备凭证失败", err))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		render.JSON(w, r, BadRequestResponse("读取报文失败", err))
		return
	}
	if len(payload) == 0 {
		render.JSON(w, r, BadRequestResponse("报文不能为空", nil))
		return
	}

	msg, err := c.inboxService.Ingest(r.Context(), cred.DeviceSN, models.InboxSourceHTTP, payload)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("报文入箱失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("报文接入成功", msg))
}
