package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/oleeahmmed/hrm/internal/domain/adms"
	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// ReplyOK 设备只认识的成功应答
const ReplyOK = "OK"

// HandshakeRequest 设备注册 (cdata GET) 或轮询 (getrequest)
type HandshakeRequest struct {
	Serial      string
	IP          string
	PushVersion string
	Info        string
	// Poll 为 getrequest 轮询，没有命令时应答 OK 而不是配置块
	Poll bool
}

// PushRequest 设备上传的一张数据表
type PushRequest struct {
	Serial string
	IP     string
	Table  string
	Body   string
	// Truncated 请求体超出上限，只读到了前一部分
	Truncated bool
}

// PushResult 上传处理计数
type PushResult struct {
	Table    string `json:"table"`
	Received int    `json:"received"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// AckRequest 设备命令回执 (devicecmd)
type AckRequest struct {
	Serial string
	IP     string
	Body   string
}

// InterfaceGatewayService ADMS 推送协议网关
type InterfaceGatewayService interface {
	Handshake(ctx context.Context, req HandshakeRequest) string
	Push(ctx context.Context, req PushRequest) PushResult
	Acknowledge(ctx context.Context, req AckRequest) int
}

// GatewayService 处理设备推送。对设备的应答永远是 200，错误只记录日志并发布事件。
type GatewayService struct {
	Config    *config.Config
	Clock     clock.Clock
	Registry  InterfaceRegistryService
	Ledger    InterfaceLedgerService
	Directory InterfaceDirectoryService
	Commands  InterfaceCommandService
	Notifier  InterfaceNotifierService
}

// NewGatewayService 创建推送网关服务
func NewGatewayService(cfg *config.Config, clk clock.Clock, registry InterfaceRegistryService, ledger InterfaceLedgerService,
	directory InterfaceDirectoryService, commands InterfaceCommandService, notifier InterfaceNotifierService) InterfaceGatewayService {
	return &GatewayService{
		Config:    cfg,
		Clock:     clk,
		Registry:  registry,
		Ledger:    ledger,
		Directory: directory,
		Commands:  commands,
		Notifier:  notifier,
	}
}

// Settings 注册应答中的设备参数
func (s *GatewayService) Settings() adms.Settings {
	st := adms.DefaultSettings()
	st.ErrorDelay = s.Config.ADMSErrorDelay
	st.Delay = s.Config.ADMSDelay
	st.TimeZone = s.Config.ADMSTimeZone
	if s.Config.ADMSTransFlag != "" {
		st.TransFlag = s.Config.ADMSTransFlag
	}
	if s.Config.ADMSServerVersion != "" {
		st.ServerVersion = s.Config.ADMSServerVersion
	}
	if s.Config.ADMSPushVersion != "" {
		st.PushVersion = s.Config.ADMSPushVersion
	}
	return st
}

func (s *GatewayService) ingestError(serial, stage string, err error) {
	Logger.Error("[ADMS] %s %s: %v", serial, stage, err)
	if s.Notifier != nil {
		s.Notifier.Publish(EventIngestError, map[string]interface{}{
			"serial_number": serial,
			"stage":         stage,
			"error":         err.Error(),
		})
	}
}

// 1 Handshake 注册/轮询：有待下发命令时返回命令，否则返回配置块或 OK
func (s *GatewayService) Handshake(ctx context.Context, req HandshakeRequest) string {
	idle := adms.FormatSettings(req.Serial, s.Settings())
	if req.Poll {
		idle = ReplyOK
	}

	obs := DeviceObservation{IPAddress: req.IP, PushVersion: req.PushVersion}
	if info, ok := adms.ParseInfo(req.Info); ok {
		obs.FirmwareVersion = info.FirmwareVersion
		obs.UserCount = info.UserCount
		obs.FingerprintCount = info.FingerprintCount
		obs.TransactionCount = info.TransactionCount
		obs.FaceCount = info.FaceCount
		if info.IPAddress != "" {
			obs.IPAddress = info.IPAddress
		}
	}

	device, err := s.Registry.RegisterOrUpdate(req.Serial, obs)
	if err != nil {
		s.ingestError(req.Serial, "register", err)
		return idle
	}
	if err := s.Registry.RecordHeartbeat(device, obs); err != nil {
		Logger.Warning("[ADMS] %s 心跳写入失败: %v", req.Serial, err)
	}
	if !device.IsActive {
		return idle
	}

	for {
		cmd, err := s.Commands.ClaimNext(ctx, device.ID)
		if err != nil {
			s.ingestError(req.Serial, "command", err)
			return idle
		}
		if cmd == nil {
			return idle
		}
		line, err := adms.FormatCommand(*cmd.CorrelationID, cmd.Kind, cmd.Content, s.Clock.Now())
		if err == nil {
			Logger.Info("[ADMS] %s 下发命令 %s", req.Serial, line)
			return line
		}
		// 无法生成的命令直接置为失败，继续取下一条
		s.ingestError(req.Serial, "command format", err)
		if _, aerr := s.Commands.Acknowledge(ctx, cmd.DeviceID, *cmd.CorrelationID, -1, err.Error()); aerr != nil {
			s.ingestError(req.Serial, "command", aerr)
			return idle
		}
	}
}

// 2 Push 处理一次数据上传
func (s *GatewayService) Push(ctx context.Context, req PushRequest) PushResult {
	kind := adms.ParseTableKind(req.Table)
	result := PushResult{Table: kind.String()}

	device, err := s.Registry.RegisterOrUpdate(req.Serial, DeviceObservation{IPAddress: req.IP})
	if err != nil {
		s.ingestError(req.Serial, "register", err)
		return result
	}

	body := req.Body
	if req.Truncated {
		// 最后一行不完整，丢弃
		if i := strings.LastIndexByte(body, '\n'); i >= 0 {
			body = body[:i+1]
		} else {
			body = ""
		}
		s.ingestError(req.Serial, "body "+kind.String(), ErrPushTruncated)
	}

	batch := adms.ParseBody(kind, body, device.Location())
	result.Received = batch.Lines
	result.Failed = batch.Failed

	switch kind {
	case adms.TableAttLog, adms.TableOperLog, adms.TableUserInfo, adms.TableFingerTmp, adms.TableFace:
		s.storeBatch(ctx, device, &batch, &result)
	case adms.TableOptions:
		s.applyOptions(device, batch.Options, &result)
	case adms.TableUnknown:
		Logger.Warning("[ADMS] %s 未知数据表 %q，忽略 %d 行", req.Serial, req.Table, batch.Lines)
		result.Skipped = batch.Lines
		result.Failed = 0
	}

	if batch.Failed > 0 {
		Logger.Warning("[ADMS] %s %s: %d 行解析失败", req.Serial, kind, batch.Failed)
	}
	Logger.Info("[ADMS] %s %s: 收到 %d, 新增 %d, 重复 %d, 失败 %d",
		req.Serial, kind, result.Received, result.Inserted, result.Skipped, result.Failed)
	return result
}

func (s *GatewayService) storeBatch(ctx context.Context, device *models.Device, batch *adms.Batch, result *PushResult) {
	for _, p := range batch.Punches {
		inserted, err := s.Ledger.RecordPunch(ctx, PunchInput{
			DeviceID:    device.ID,
			SubjectID:   p.SubjectID,
			Time:        p.Time,
			PunchType:   models.PunchType(p.Status),
			VerifyType:  models.VerifyType(p.Verify),
			WorkCode:    p.WorkCode,
			Source:      models.SourcePush,
			Temperature: p.Temperature,
			MaskStatus:  p.Mask,
			Raw:         p.Raw,
		})
		s.count(device.SerialNumber, "punch", inserted, err, result)
	}

	for _, u := range batch.Users {
		inserted, err := s.Directory.ImportUser(ctx, &models.DeviceUser{
			DeviceID:   device.ID,
			SubjectID:  u.SubjectID,
			Name:       u.Name,
			Privilege:  u.Privilege,
			CardNumber: u.Card,
			Password:   u.Password,
			GroupID:    u.Group,
		})
		s.count(device.SerialNumber, "user", inserted, err, result)
	}

	for _, t := range batch.Fingerprints {
		err := s.Directory.SaveFingerprint(ctx, &models.FingerprintTemplate{
			DeviceID: device.ID, SubjectID: t.SubjectID, Index: t.Index,
			Size: t.Size, Valid: t.Valid, Template: t.Data,
		})
		s.count(device.SerialNumber, "fingerprint", true, err, result)
	}

	for _, t := range batch.Faces {
		err := s.Directory.SaveFace(ctx, &models.FaceTemplate{
			DeviceID: device.ID, SubjectID: t.SubjectID, Index: t.Index,
			Size: t.Size, Valid: t.Valid, Template: t.Data,
		})
		s.count(device.SerialNumber, "face", true, err, result)
	}

	for _, op := range batch.Operations {
		err := s.Directory.RecordOperation(ctx, &models.DeviceOperationLog{
			DeviceID:      device.ID,
			OperationCode: op.Code,
			OperationType: models.OperationTypeFromCode(op.Code),
			AdminID:       op.AdminID,
			OperatedAt:    op.Time.UTC(),
			Params:        op.Params,
		})
		s.count(device.SerialNumber, "operation", true, err, result)
	}
}

func (s *GatewayService) count(serial, what string, inserted bool, err error, result *PushResult) {
	switch {
	case err != nil:
		result.Failed++
		s.ingestError(serial, what, err)
	case inserted:
		result.Inserted++
	default:
		result.Skipped++
	}
}

// applyOptions 合并 OPTIONS 表并刷新设备计数
func (s *GatewayService) applyOptions(device *models.Device, opts map[string]string, result *PushResult) {
	obs := DeviceObservation{Options: opts}
	atoi := func(keys ...string) int {
		for _, k := range keys {
			if v, ok := opts[k]; ok {
				n, _ := strconv.Atoi(v)
				return n
			}
		}
		return 0
	}
	obs.UserCount = atoi("UserCount")
	obs.FingerprintCount = atoi("FPCount", "FingerFunOn_FPCount")
	obs.FaceCount = atoi("FaceCount")
	obs.TransactionCount = atoi("TransactionCount", "AttLogCount")
	obs.FirmwareVersion = opts["FWVersion"]
	obs.IPAddress = opts["IPAddress"]
	obs.MACAddress = opts["MAC"]
	obs.Platform = opts["Platform"]
	obs.OEMVendor = opts["OEMVendor"]

	if _, err := s.Registry.RegisterOrUpdate(device.SerialNumber, obs); err != nil {
		result.Failed += len(opts)
		s.ingestError(device.SerialNumber, "options", err)
		return
	}
	result.Inserted = len(opts)
}

// 3 Acknowledge 处理命令回执，返回匹配到的命令数
func (s *GatewayService) Acknowledge(ctx context.Context, req AckRequest) int {
	device, err := s.Registry.RegisterOrUpdate(req.Serial, DeviceObservation{IPAddress: req.IP})
	if err != nil {
		s.ingestError(req.Serial, "register", err)
		return 0
	}
	matched := 0
	for _, ack := range adms.ParseAcks(req.Body) {
		ok, err := s.Commands.Acknowledge(ctx, device.ID, ack.ID, ack.Return, ack.Raw)
		if err != nil {
			s.ingestError(req.Serial, "ack", err)
			continue
		}
		if ok {
			matched++
			Logger.Info("[ADMS] %s 命令 %s 回执 Return=%d", req.Serial, ack.ID, ack.Return)
		}
	}
	return matched
}
