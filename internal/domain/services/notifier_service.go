package services

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// 事件名称，发布到 <prefix>/<event>
const (
	EventDeviceOnline   = "device_online"
	EventDeviceOffline  = "device_offline"
	EventCommandSent    = "command_sent"
	EventCommandAcked   = "command_acked"
	EventCommandTimeout = "command_timeout"
	EventIngestError    = "ingest_error"
	EventSyncFinished   = "sync_finished"
	EventBatchFinished  = "batch_finished"
)

// InterfaceNotifierService 向运维方发布事件
type InterfaceNotifierService interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	Publish(event string, payload interface{})
	Topic(event string) string
}

// NotifierService 基于 MQTT 的事件发布。未启用或未连接时事件只写日志。
type NotifierService struct {
	Client mqtt.Client
	Config *config.Config

	connected      bool
	connectedMutex sync.RWMutex
	publishMutex   sync.Mutex
}

// Event 发布的消息体
type Event struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewNotifierService 创建事件发布服务
func NewNotifierService(cfg *config.Config) InterfaceNotifierService {
	s := &NotifierService{Config: cfg}
	if cfg.MQTTEnabled {
		s.setupMQTTClient()
	}
	return s
}

// setupMQTTClient 设置MQTT客户端
func (s *NotifierService) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Config.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", s.Config.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Second * 30)
	opts.SetKeepAlive(time.Second * 60)
	opts.SetPingTimeout(time.Second * 10)
	opts.SetCleanSession(true)

	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	if strings.HasPrefix(s.Config.MQTTBrokerURL, "ssl://") || strings.HasPrefix(s.Config.MQTTBrokerURL, "tls://") || s.Config.MQTTSSLEnabled {
		Logger.Info("[MQTT] 使用TLS连接")
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		Logger.Warning("[MQTT] 连接丢失: %v", err)
		s.setConnected(false)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		Logger.Info("[MQTT] 成功连接到 %s", s.Config.MQTTBrokerURL)
		s.setConnected(true)
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		Logger.Info("[MQTT] 正在尝试重连...")
	})

	s.Client = mqtt.NewClient(opts)
}

func (s *NotifierService) setConnected(v bool) {
	s.connectedMutex.Lock()
	s.connected = v
	s.connectedMutex.Unlock()
}

// 1 Connect 连接到MQTT服务器，带有重试机制
func (s *NotifierService) Connect() error {
	if s.Client == nil {
		Logger.Info("[MQTT] 未启用，事件仅写入日志")
		return nil
	}
	if s.IsConnected() {
		return nil
	}

	maxRetries := 5
	var err error
	for i := 0; i < maxRetries; i++ {
		token := s.Client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			s.setConnected(true)
			return nil
		}

		err = token.Error()
		backoffTime := time.Duration(1<<uint(i)) * time.Second // 指数退避: 1s, 2s, 4s, 8s, 16s
		Logger.Warning("[MQTT] 连接尝试 %d/%d 失败: %v, 将在 %v 后重试", i+1, maxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}

	return fmt.Errorf("[MQTT] 连接失败，已尝试 %d 次: %v", maxRetries, err)
}

// 2 Disconnect 断开与MQTT服务器的连接
func (s *NotifierService) Disconnect() {
	if s.Client != nil && s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
	s.setConnected(false)
}

// 3 IsConnected 是否已连接
func (s *NotifierService) IsConnected() bool {
	s.connectedMutex.RLock()
	defer s.connectedMutex.RUnlock()
	return s.connected && s.Client != nil && s.Client.IsConnected()
}

// 4 Topic 事件对应的主题
func (s *NotifierService) Topic(event string) string {
	return strings.TrimSuffix(s.Config.MQTTTopicPrefix, "/") + "/" + event
}

// 5 Publish 发布事件。发布失败只记录日志，不影响调用方。
func (s *NotifierService) Publish(event string, payload interface{}) {
	topic := s.Topic(event)
	if !s.IsConnected() {
		Logger.Debug("[MQTT] 未连接，跳过发布 %s", topic)
		return
	}
	if err := s.publishMessage(topic, Event{Event: event, Timestamp: time.Now().Unix(), Data: payload}); err != nil {
		Logger.Warning("[MQTT] %v", err)
	}
}

// publishMessage 发布消息到指定主题
func (s *NotifierService) publishMessage(topic string, payload interface{}) error {
	s.publishMutex.Lock()
	defer s.publishMutex.Unlock()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	token := s.Client.Publish(topic, byte(s.Config.MQTTQoS), s.Config.MQTTRetained, jsonData)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布消息超时: %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("发布消息失败: %v", token.Error())
	}

	Logger.Debug("[MQTT] 已发布消息到主题: %s", topic)
	return nil
}
