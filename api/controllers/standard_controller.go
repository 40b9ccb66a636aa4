/*
 * @module api/controllers/standard_controller
 * @description 参考标准控制器，提供按柱号/型号查询参考标准与标准维护接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 按柱号查询走型号级缓存；保存标准后缓存失效
 * @dependencies service/standard, service/models
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"columnqc-service/service"
	"columnqc-service/service/models"
	"columnqc-service/service/standard"
)

// StandardController 参考标准控制器
type StandardController struct {
	standardService *standard.Service
}

// NewStandardController 创建参考标准控制器
func NewStandardController() *StandardController {
	return &StandardController{
		standardService: service.GlobalStandardService,
	}
}

// GetStandardByColumnSN 按柱号查询参考标准
// @Summary 按柱号查询参考标准
// @Description 查柱所属型号的参考标准，返回各检测维度的上下限与CV阈值
// @Tags 参考标准管理
// @Produce json
// @Param column_sn path string true "柱号"
// @Success 200 {object} APIResponse{data=standard.StandardData}
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /standards/by-column/{column_sn} [get]
func (c *StandardController) GetStandardByColumnSN(w http.ResponseWriter, r *http.Request) {
	columnSN := chi.URLParam(r, "column_sn")

	data, err := c.standardService.GetStandardByColumnSN(r.Context(), columnSN)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询参考标准失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", data))
}

// ListStandards 查询参考标准列表
// @Summary 查询参考标准列表
// @Description 查询全部参考标准，支持按型号过滤
// @Tags 参考标准管理
// @Produce json
// @Param column_model query string false "柱型号"
// @Success 200 {object} APIResponse{data=[]models.ReferenceStandard}
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /standards [get]
func (c *StandardController) ListStandards(w http.ResponseWriter, r *http.Request) {
	standards, err := c.standardService.ListStandards(r.Context(), r.URL.Query().Get("column_model"))
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询参考标准列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", standards))
}

// SaveStandard 保存参考标准
// @Summary 保存参考标准
// @Description 新增或更新型号级参考标准，保存后型号缓存失效
// @Tags 参考标准管理
// @Accept json
// @Produce json
// @Param standard body models.ReferenceStandard true "参考标准"
// @Success 200 {object} APIResponse{data=models.ReferenceStandard} "保存成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /standards [post]
func (c *StandardController) SaveStandard(w http.ResponseWriter, r *http.Request) {
	var std models.ReferenceStandard
	if err := json.NewDecoder(r.Body).Decode(&std); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}
	if std.ColumnModel == "" {
		render.JSON(w, r, BadRequestResponse("柱型号不能为空", nil))
		return
	}

	if err := c.standardService.SaveStandard(r.Context(), &std); err != nil {
		render.JSON(w, r, InternalErrorResponse("保存参考标准失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("保存参考标准成功", &std))
}
