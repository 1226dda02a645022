package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"vibelink/backend/internal/config"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/moderation"
	"vibelink/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	storageSvc := storage.NewStorageService(db, rdb)
	moderationSvc := moderation.NewService(storageSvc)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin ban <user_id> [duration_in_hours]")
			os.Exit(1)
		}
		userID := os.Args[2]
		var duration int
		if len(os.Args) > 3 {
			duration, err = strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
		}
		if err := banUser(storageSvc, userID, duration); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %s has been banned.\n", userID)

	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unban <user_id>")
			os.Exit(1)
		}
		userID := os.Args[2]
		if err := unbanUser(storageSvc, userID); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %s has been unbanned.\n", userID)

	case "grant-coins":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin grant-coins <user_id> <amount>")
			os.Exit(1)
		}
		userID := os.Args[2]
		amount, err := strconv.Atoi(os.Args[3])
		if err != nil || amount <= 0 {
			fmt.Println("Invalid amount. Please provide a positive integer.")
			os.Exit(1)
		}
		if err := storageSvc.Credit(userID, amount, models.TxnAdminGrant); err != nil {
			log.Fatalf("Error granting coins: %v", err)
		}
		fmt.Printf("Granted %d coins to user %s.\n", amount, userID)

	case "grant-premium":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin grant-premium <user_id> <days>")
			os.Exit(1)
		}
		userID := os.Args[2]
		days, err := strconv.Atoi(os.Args[3])
		if err != nil || days <= 0 {
			fmt.Println("Invalid day count. Please provide a positive integer.")
			os.Exit(1)
		}
		if err := storageSvc.ExtendPremium(userID, time.Duration(days)*24*time.Hour); err != nil {
			log.Fatalf("Error granting premium: %v", err)
		}
		fmt.Printf("Extended premium for user %s by %d days.\n", userID, days)

	case "confirm-report":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin confirm-report <report_id>")
			os.Exit(1)
		}
		reportID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid report ID. Please provide an integer.")
			os.Exit(1)
		}
		if err := moderationSvc.ConfirmReport(uint(reportID)); err != nil {
			log.Fatalf("Error confirming report: %v", err)
		}
		fmt.Printf("Report %d has been confirmed.\n", reportID)

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func banUser(s storage.Storage, userID string, durationHours int) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	user.IsBlocked = true
	duration := 24 * time.Hour
	if durationHours > 0 {
		duration = time.Duration(durationHours) * time.Hour
		user.BlockEndTime = time.Now().Add(duration).Unix()
	}
	if err := s.UpdateUser(user); err != nil {
		return err
	}
	return s.SetBanFlag(userID, duration)
}

func unbanUser(s storage.Storage, userID string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	user.IsBlocked = false
	user.BlockEndTime = 0
	if err := s.UpdateUser(user); err != nil {
		return err
	}
	return s.ClearBanFlag(userID)
}
