/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"columnqc-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.ChromatographyColumn{},
		&models.ChangeLogEntry{},
		&models.ReportTask{},
		&models.ReportedMonth{},
		&models.ReferenceStandard{},
		&models.DeviceMessageInbox{},
		&models.DeviceCredential{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"chromatography_columns",
		"change_log_entries",
		"report_tasks",
		"reported_months",
		"reference_standards",
		"device_message_inboxes",
		"device_credentials",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// ColumnOption 色谱柱选项函数类型
type ColumnOption func(*models.ChromatographyColumn)

// WithColumnStatus 设置色谱柱状态
func WithColumnStatus(status string) ColumnOption {
	return func(c *models.ChromatographyColumn) {
		c.Status = status
	}
}

// WithDetectionData 设置检测数据快照
func WithDetectionData(data models.DetectionData) ColumnOption {
	return func(c *models.ChromatographyColumn) {
		c.DetectionData = data
	}
}

// WithRepeatabilityRaw 设置仪器上传的重复性原始数据
func WithRepeatabilityRaw(raw string) ColumnOption {
	return func(c *models.ChromatographyColumn) {
		c.RepeatabilityRaw = raw
	}
}

// CreateColumn 创建测试色谱柱
func (f *TestDataFactory) CreateColumn(columnSN string, opts ...ColumnOption) *models.ChromatographyColumn {
	column := &models.ChromatographyColumn{
		ColumnSN:    columnSN,
		ColumnModel: "HbA1c-C18",
		BatchNo:     "B20240801",
		Status:      models.ColumnStatusPending,
	}
	for _, opt := range opts {
		opt(column)
	}
	if err := f.DB.Create(column).Error; err != nil {
		panic(fmt.Sprintf("failed to create test column: %v", err))
	}
	return column
}

// CreateStandard 创建测试参考标准
func (f *TestDataFactory) CreateStandard(columnModel string) *models.ReferenceStandard {
	minTemp, maxTemp := 20.0, 30.0
	minPressure, maxPressure := 5.0, 10.0
	minPeak, maxPeak := 0.5, 2.5
	maxCv := 1.5

	std := &models.ReferenceStandard{
		ColumnModel:    columnModel,
		MinTemperature: &minTemp,
		MaxTemperature: &maxTemp,
		MinPressure:    &minPressure,
		MaxPressure:    &maxPressure,
		MinPeakTime:    &minPeak,
		MaxPeakTime:    &maxPeak,
		MaxCv:          &maxCv,
		IsEnabled:      true,
	}
	if err := f.DB.Create(std).Error; err != nil {
		panic(fmt.Sprintf("failed to create test standard: %v", err))
	}
	return std
}

// CreateInboxMessage 创建测试收件箱报文
func (f *TestDataFactory) CreateInboxMessage(deviceSN, rawJSON string, parseable bool) *models.DeviceMessageInbox {
	msg := &models.DeviceMessageInbox{
		DeviceSN:   deviceSN,
		Source:     models.InboxSourceMQTT,
		RawJSON:    rawJSON,
		Parseable:  parseable,
		Status:     models.InboxStatusPending,
		ReceivedAt: time.Now(),
	}
	if err := f.DB.Create(msg).Error; err != nil {
		panic(fmt.Sprintf("failed to create test inbox message: %v", err))
	}
	return msg
}

// ReportTaskOption 报告任务选项函数类型
type ReportTaskOption func(*models.ReportTask)

// WithTaskMonth 设置打包任务的报告月份
func WithTaskMonth(month string) ReportTaskOption {
	return func(t *models.ReportTask) {
		t.Month = month
	}
}

// CreateReportTask 创建测试报告任务记录
func (f *TestDataFactory) CreateReportTask(taskID, taskType, status string, opts ...ReportTaskOption) *models.ReportTask {
	task := &models.ReportTask{
		TaskID:      taskID,
		TaskType:    taskType,
		Status:      status,
		SubmittedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(task)
	}
	if err := f.DB.Create(task).Error; err != nil {
		panic(fmt.Sprintf("failed to create test report task: %v", err))
	}
	return task
}
