/*
 * @module service/column/service_test
 * @description 色谱柱业务服务测试：检测数据保存、变更日志落库、批量审核与重复性查询
 * @architecture 测试层 - 业务服务验证
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 初始化内存数据库 -> 构造测试数据 -> 调用服务 -> 断言落库结果
 * @rules 保存必须同事务写入柱数据与变更日志；失败保存不留下部分写入
 * @dependencies testing, testify, testutil
 * @refs service.go
 */

package column

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"columnqc-service/service/meta"
	"columnqc-service/service/models"
	"columnqc-service/testutil"
)

// ColumnServiceTestSuite 色谱柱服务测试套件
type ColumnServiceTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDB
	factory *testutil.TestDataFactory
	service *Service
}

// SetupSuite 设置测试套件
func (suite *ColumnServiceTestSuite) SetupSuite() {
	suite.testDB = testutil.NewTestDB()
	suite.factory = testutil.NewTestDataFactory(suite.testDB.DB)
	suite.service = NewService(suite.testDB.DB)
}

// TearDownSuite 清理测试套件
func (suite *ColumnServiceTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

// SetupTest 设置每个测试
func (suite *ColumnServiceTestSuite) SetupTest() {
	suite.testDB.CleanDB()
}

func (suite *ColumnServiceTestSuite) TestSaveDetectionDerivesAndLogs() {
	baseline := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "25", Conclusion: models.ConclusionPass},
	}
	suite.factory.CreateColumn("LC2024-001", testutil.WithDetectionData(baseline))

	edited := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "31"},
	}

	result, err := suite.service.SaveDetection(context.Background(), "LC2024-001", edited, "reviewer01")
	suite.Require().NoError(err)

	// 结论由派生重算产出
	suite.Equal(models.ConclusionFail, result.Column.DetectionData[meta.DetectionTemperature].Conclusion)

	// 变更日志落库：结果为user，结论为auto
	var logs []models.ChangeLogEntry
	suite.Require().NoError(suite.testDB.DB.Where("column_sn = ?", "LC2024-001").Find(&logs).Error)
	suite.Len(logs, 2)

	sources := make(map[string]string)
	for _, entry := range logs {
		sources[entry.FieldPath] = entry.Source
		suite.Equal("reviewer01", entry.ChangedBy)
	}
	suite.Equal(models.ChangeSourceUser, sources["detectionData.temperature.result"])
	suite.Equal(models.ChangeSourceAuto, sources["detectionData.temperature.conclusion"])
}

func (suite *ColumnServiceTestSuite) TestSaveDetectionRejectsUnknownKind() {
	suite.factory.CreateColumn("LC2024-002")

	edited := models.DetectionData{
		"unknownDimension": {Result: "1"},
	}

	_, err := suite.service.SaveDetection(context.Background(), "LC2024-002", edited, "reviewer01")
	suite.Error(err)

	// 校验失败不产生任何变更日志
	var count int64
	suite.testDB.DB.Model(&models.ChangeLogEntry{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *ColumnServiceTestSuite) TestSaveDetectionColumnNotFound() {
	_, err := suite.service.SaveDetection(context.Background(), "不存在的柱号", models.DetectionData{}, "reviewer01")
	suite.ErrorIs(err, ErrColumnNotFound)
}

func (suite *ColumnServiceTestSuite) TestBatchApprove() {
	pass := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "25", Conclusion: models.ConclusionPass},
	}
	fail := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "31", Conclusion: models.ConclusionFail},
	}

	suite.factory.CreateColumn("LC2024-101", testutil.WithDetectionData(pass))
	suite.factory.CreateColumn("LC2024-102", testutil.WithDetectionData(fail))
	suite.factory.CreateColumn("LC2024-103", testutil.WithColumnStatus(models.ColumnStatusApproved))

	result, err := suite.service.BatchApprove(context.Background(),
		[]string{"LC2024-101", "LC2024-102", "LC2024-103", "LC2024-999"}, "reviewer01")
	suite.Require().NoError(err)

	suite.Equal(1, result.Success)
	suite.Equal(3, result.Fail)
	// 每柱的失败原因按柱号记录
	suite.Contains(result.Failed, "LC2024-102")
	suite.Contains(result.Failed, "LC2024-103")
	suite.Contains(result.Failed, "LC2024-999")

	approved, err := suite.service.GetColumn(context.Background(), "LC2024-101")
	suite.Require().NoError(err)
	suite.Equal(models.ColumnStatusApproved, approved.Status)
	suite.Equal("reviewer01", approved.Reviewer)
	suite.NotNil(approved.ReviewedAt)
}

func (suite *ColumnServiceTestSuite) TestBatchApproveEmptyList() {
	_, err := suite.service.BatchApprove(context.Background(), nil, "reviewer01")
	suite.Error(err)
}

func (suite *ColumnServiceTestSuite) TestGetRepeatabilityFromSnapshot() {
	data := models.DetectionData{
		meta.DetectionRepeatability: {
			RawValues: map[string][]string{"糖化模式": {"5.0", "5.1"}},
		},
	}
	suite.factory.CreateColumn("LC2024-201", testutil.WithDetectionData(data))

	raw, err := suite.service.GetRepeatability(context.Background(), "LC2024-201")
	suite.Require().NoError(err)
	suite.Equal([]string{"5.0", "5.1"}, raw["糖化模式"])
}

func (suite *ColumnServiceTestSuite) TestGetRepeatabilityLegacyShape() {
	// 快照缺失时回退解析仪器上传的历史形态
	suite.factory.CreateColumn("LC2024-202",
		testutil.WithRepeatabilityRaw(`[{"type": "糖化模式", "values": ["4.9", "5.0"]}]`))

	raw, err := suite.service.GetRepeatability(context.Background(), "LC2024-202")
	suite.Require().NoError(err)
	suite.Equal([]string{"4.9", "5.0"}, raw["糖化模式"])
}

func (suite *ColumnServiceTestSuite) TestListColumns() {
	suite.factory.CreateColumn("LC2024-301")
	suite.factory.CreateColumn("LC2024-302", testutil.WithColumnStatus(models.ColumnStatusApproved))

	columns, total, err := suite.service.ListColumns(context.Background(), ListFilter{Status: models.ColumnStatusPending})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(columns, 1)
	suite.Equal("LC2024-301", columns[0].ColumnSN)
}

func TestColumnServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ColumnServiceTestSuite))
}
