package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/response"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// MaxPushBody 单次上传上限，超出部分截断并上报 ingest_error
var MaxPushBody int64 = 8 << 20

// InterfaceADMSController 设备推送协议控制器接口
type InterfaceADMSController interface {
	Handshake()
	Upload()
	GetRequest()
	DeviceCmd()
}

// ADMSController 处理考勤机的 iclock 请求，应答始终为 200 纯文本
type ADMSController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewADMSController 创建设备推送控制器
func NewADMSController(ctx *gin.Context, container *container.ServiceContainer) *ADMSController {
	return &ADMSController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleADMSFunc 返回处理设备请求的Gin处理函数
func HandleADMSFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewADMSController(ctx, container)

		switch method {
		case "cdata":
			if ctx.Request.Method == http.MethodPost {
				controller.Upload()
			} else {
				controller.Handshake()
			}
		case "handshake":
			controller.Handshake()
		case "upload":
			controller.Upload()
		case "getRequest":
			controller.GetRequest()
		case "deviceCmd":
			controller.DeviceCmd()
		default:
			response.DeviceText(ctx, services.ReplyOK)
		}
	}
}

func (c *ADMSController) gateway() services.InterfaceGatewayService {
	return c.Container.GetService("gateway").(services.InterfaceGatewayService)
}

func (c *ADMSController) serial() string {
	return strings.TrimSpace(c.Ctx.Query("SN"))
}

// body 读取请求体，超出 MaxPushBody 时 truncated 为 true
func (c *ADMSController) body() (string, bool) {
	reader := http.MaxBytesReader(c.Ctx.Writer, c.Ctx.Request.Body, MaxPushBody)
	data, err := io.ReadAll(reader)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return string(data), true
	}
	if err != nil {
		Logger.Warning("[ADMS] %s 读取请求体失败: %v", c.serial(), err)
	}
	return string(data), false
}

// 1. Handshake 设备注册/心跳
// @Summary      设备握手
// @Description  考勤机开机或定时请求，返回服务器配置块或待执行命令
// @Tags         ADMS
// @Produce      plain
// @Param        SN query string true "设备序列号"
// @Param        options query string false "all 表示请求配置"
// @Param        pushver query string false "推送协议版本"
// @Param        INFO query string false "设备信息，逗号分隔"
// @Success      200  {string}  string "配置块或 OK"
// @Router       /iclock/cdata [get]
func (c *ADMSController) Handshake() {
	serial := c.serial()
	if serial == "" {
		response.DeviceText(c.Ctx, services.ReplyOK)
		return
	}
	reply := c.gateway().Handshake(c.Ctx.Request.Context(), services.HandshakeRequest{
		Serial:      serial,
		IP:          c.Ctx.ClientIP(),
		PushVersion: c.Ctx.Query("pushver"),
		Info:        c.Ctx.Query("INFO"),
	})
	response.DeviceText(c.Ctx, reply)
}

// 2. Upload 设备上传数据表
// @Summary      设备上传数据
// @Description  ATTLOG/OPERLOG/USERINFO/FINGERTMP/BIODATA/OPTIONS 等表，无论结果均返回 OK
// @Tags         ADMS
// @Accept       plain
// @Produce      plain
// @Param        SN query string true "设备序列号"
// @Param        table query string true "数据表名"
// @Success      200  {string}  string "OK"
// @Router       /iclock/cdata [post]
func (c *ADMSController) Upload() {
	serial := c.serial()
	body, truncated := c.body()
	if serial == "" {
		response.DeviceText(c.Ctx, services.ReplyOK)
		return
	}
	table := c.Ctx.Query("table")
	if table == "" {
		table = c.Ctx.Query("Table")
	}
	result := c.gateway().Push(c.Ctx.Request.Context(), services.PushRequest{
		Serial:    serial,
		IP:        c.Ctx.ClientIP(),
		Table:     table,
		Body:      body,
		Truncated: truncated,
	})
	Logger.Debug("[ADMS] %s %s: 收到 %d, 新增 %d, 跳过 %d, 失败 %d",
		serial, result.Table, result.Received, result.Inserted, result.Skipped, result.Failed)
	response.DeviceText(c.Ctx, services.ReplyOK)
}

// 3. GetRequest 设备轮询命令
// @Summary      设备轮询命令
// @Tags         ADMS
// @Produce      plain
// @Param        SN query string true "设备序列号"
// @Success      200  {string}  string "命令行或 OK"
// @Router       /iclock/getrequest [get]
func (c *ADMSController) GetRequest() {
	serial := c.serial()
	if serial == "" {
		response.DeviceText(c.Ctx, services.ReplyOK)
		return
	}
	reply := c.gateway().Handshake(c.Ctx.Request.Context(), services.HandshakeRequest{
		Serial: serial,
		IP:     c.Ctx.ClientIP(),
		Info:   c.Ctx.Query("INFO"),
		Poll:   true,
	})
	response.DeviceText(c.Ctx, reply)
}

// 4. DeviceCmd 设备命令回执
// @Summary      设备命令回执
// @Tags         ADMS
// @Accept       plain
// @Produce      plain
// @Param        SN query string true "设备序列号"
// @Success      200  {string}  string "OK"
// @Router       /iclock/devicecmd [post]
func (c *ADMSController) DeviceCmd() {
	serial := c.serial()
	body, _ := c.body()
	if serial != "" {
		matched := c.gateway().Acknowledge(c.Ctx.Request.Context(), services.AckRequest{
			Serial: serial,
			IP:     c.Ctx.ClientIP(),
			Body:   body,
		})
		Logger.Debug("[ADMS] %s 命令回执 %d 条", serial, matched)
	}
	response.DeviceText(c.Ctx, services.ReplyOK)
}
