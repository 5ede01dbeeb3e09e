package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lexia-auth/internal/config"
	"lexia-auth/internal/db"
	"lexia-auth/internal/events"
	"lexia-auth/internal/service"
)

// seed_admin crea o promueve la cuenta administradora usada por el panel /admin.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	store, closeStore := db.OpenUserStore(ctx, cfg, logger)
	defer closeStore()

	userSvc := service.NewUserService(
		logger,
		store,
		service.NewBcryptHasher(cfg.BcryptCost),
		service.DefaultLockoutPolicy(),
		nil,
		events.NewNopPublisher(),
		cfg.FrontendURL,
	)

	fmt.Printf("===== Admin seeding (store: %s) =====\n", store.Status().Backend)
	for {
		in := service.AdminSeedInput{Email: prompt(reader, "Email: ")}
		fmt.Println("Si la cuenta existe se promueve y se conserva su contraseña.")
		in.FirstName = prompt(reader, "Nombre (vacio si la cuenta existe): ")
		in.LastName = prompt(reader, "Apellido (vacio si la cuenta existe): ")
		in.Password = prompt(reader, "Contraseña (vacio si la cuenta existe): ")

		user, created, err := userSvc.SeedAdmin(ctx, in)
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			for _, fe := range verr.Fields {
				fmt.Printf("  %s: %s\n", fe.Field, fe.Message)
			}
			continue
		case err != nil:
			log.Fatalf("seed admin: %v", err)
		}

		if created {
			fmt.Printf("Administrador creado: %s (ID: %s)\n", user.Email, user.ID)
		} else {
			fmt.Printf("Cuenta promovida a administrador: %s (ID: %s)\n", user.Email, user.ID)
		}
		fmt.Println("Usa el header admin-email con este email para acceder a /admin.")
		return
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("leer entrada: %v", err)
	}
	return strings.TrimSpace(line)
}
