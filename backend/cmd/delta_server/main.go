package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"deltaServer/backend/config"
	"deltaServer/backend/internal/cache"
	"deltaServer/backend/internal/collab"
	"deltaServer/backend/internal/httpapi/handlers"
	"deltaServer/backend/internal/httpapi/middleware"
	"deltaServer/backend/internal/store"
	"deltaServer/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("connect redis failed: %v", err)
	}
	defer rdb.Close()

	// gorm 管元数据表并建表，快照热点路径单独走 database/sql
	gormDB, err := store.InitMySQL(cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}
	sqlDB, err := sql.Open("mysql", cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}
	defer sqlDB.Close()

	// SyncProducer 必须开启 Return.Successes
	kafkaCfg := sarama.NewConfig()
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("connect kafka failed: %v", err)
	}
	defer producer.Close()

	presenceCache := cache.NewRedisPresence(rdb)
	hub := ws.NewHub(presenceCache)
	snapshotStore := store.NewSnapshotStore(sqlDB)
	documentStore := store.NewDocumentStore(gormDB)
	userStore := store.NewUserStore(gormDB)

	// 发送侧只需覆盖 dispatcher worker 数，提交侧要容纳在线客户端
	kafkaSem := collab.NewSemaphoreControl(8)
	wsSem := collab.NewSemaphoreControl(256)

	// Kafka 本地队列 + worker 重试发送
	kafkaDispatcher := collab.NewKafkaDispatcher(
		producer,
		cfg.Kafka.Topic,
		kafkaSem,
		collab.KafkaDispatcherOptions{
			QueueSize:   10_000,
			Workers:     4,
			MaxRetry:    3,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  1 * time.Second,
		},
	)

	svc := collab.NewInMemoryService(snapshotStore, documentStore, userStore, presenceCache, kafkaDispatcher)
	manager := ws.NewManager(hub, svc, wsSem)
	docHandler := handlers.NewDocumentHandler(documentStore)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/collab")
	// 鉴权中间件从 Authorization 或 ?token= 提取令牌，调用 /v1/auth/verify，写入 userId/username
	api.Use(middleware.AuthMiddleware(cfg.Auth.Path))
	api.GET("/ws", manager.WebSocketConnect)
	api.POST("/documents", docHandler.CreateDocument)
	api.GET("/documents", docHandler.ListDocuments)
	api.GET("/documents/:title", docHandler.GetDocumentByTitle)

	r.GET("/collab/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	_ = r.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
