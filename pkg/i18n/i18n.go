package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	ServerListening    string
	ShuttingDown       string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	APIServerError     string
	ProfilesLoaded     string
	ProfilesLoadFailed string
	MetricsInit        string
	CacheCleanup       string

	// Runs
	RunStarted       string
	RunCompleted     string
	RunFailed        string
	RunOpLimit       string
	RunPersistFailed string

	// API
	InvalidRequest string
	UnknownProfile string
	RunNotFound    string
	RateLimited    string
	RequestTimeout string
	StoreDisabled  string

	// WebSocket
	WSClientConnected    string
	WSClientDisconnected string
	WSUpgradeFailed      string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting Star Script service...",
	ConfigLoaded:       "Config loaded (Port: %s)",
	UsingDBPath:        "Using DB path: %s",
	ServerListening:    "Server listening on :%s",
	ShuttingDown:       "Shutting down gracefully...",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to open database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	APIServerError:     "API server error: %v",
	ProfilesLoaded:     "Loaded %d runtime profiles from %s",
	ProfilesLoadFailed: "Failed to load profiles: %v",
	MetricsInit:        "Run metrics initialized",
	CacheCleanup:       "Program cache cleanup removed %d entries",

	// Runs
	RunStarted:       "[RUN] %s started (profile=%q, op limit %d)",
	RunCompleted:     "[RUN] %s completed: %d plots, %d trades, %d ops in %v",
	RunFailed:        "[RUN] %s failed (%s): %v",
	RunOpLimit:       "[RUN] %s aborted at operation limit %d",
	RunPersistFailed: "[STORE] failed to persist run %s: %v",

	// API
	InvalidRequest: "invalid request body",
	UnknownProfile: "unknown profile",
	RunNotFound:    "run not found",
	RateLimited:    "rate limit exceeded",
	RequestTimeout: "request timed out",
	StoreDisabled:  "run store is not configured",

	// WebSocket
	WSClientConnected:    "[WS] client connected from %s",
	WSClientDisconnected: "[WS] client disconnected from %s",
	WSUpgradeFailed:      "[WS] upgrade failed: %v",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "啟動 Star Script 服務...",
	ConfigLoaded:       "設定已載入 (Port: %s)",
	UsingDBPath:        "使用資料庫路徑: %s",
	ServerListening:    "服務監聽於 :%s",
	ShuttingDown:       "正在優雅關閉...",
	ConfigLoadFailed:   "載入設定失敗: %v",
	DBInitFailed:       "開啟資料庫失敗: %v",
	DBMigrationsFailed: "套用資料庫遷移失敗: %v",
	APIServerError:     "API 服務錯誤: %v",
	ProfilesLoaded:     "已從 %[2]s 載入 %[1]d 個執行設定",
	ProfilesLoadFailed: "載入執行設定失敗: %v",
	MetricsInit:        "執行指標已初始化",
	CacheCleanup:       "程式快取清理移除 %d 筆",

	// Runs
	RunStarted:       "[RUN] %s 開始 (profile=%q, 操作上限 %d)",
	RunCompleted:     "[RUN] %s 完成: %d 圖表, %d 成交, %d 操作, 耗時 %v",
	RunFailed:        "[RUN] %s 失敗 (%s): %v",
	RunOpLimit:       "[RUN] %s 超過操作上限 %d 而中止",
	RunPersistFailed: "[STORE] 儲存執行紀錄 %s 失敗: %v",

	// API
	InvalidRequest: "請求內容無效",
	UnknownProfile: "未知的執行設定",
	RunNotFound:    "找不到執行紀錄",
	RateLimited:    "超過請求頻率限制",
	RequestTimeout: "請求逾時",
	StoreDisabled:  "未設定執行紀錄儲存",

	// WebSocket
	WSClientConnected:    "[WS] 用戶端已連線 %s",
	WSClientDisconnected: "[WS] 用戶端已斷線 %s",
	WSUpgradeFailed:      "[WS] 升級連線失敗: %v",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
