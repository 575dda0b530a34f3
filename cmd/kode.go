package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/config"
	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
	"github.com/c14220110/poliklinik-treatment/internal/katalog/services"
	"github.com/c14220110/poliklinik-treatment/pkg/storage/mariadb"
)

// kodeCmd mencetak kode katalog berikutnya, misalnya: poliklinik-treatment kode obat
var kodeCmd = &cobra.Command{
	Use:   "kode [obat|satuan|jenis_obat|tindakan]",
	Short: "Mencetak kode katalog berikutnya",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := models.ParseKind(args[0])
		if err != nil {
			return err
		}

		db, err := mariadb.Connect(config.LoadConfig())
		if err != nil {
			return err
		}
		defer db.Close()

		svc := services.NewKatalogService(services.NewKatalogStore(db), nil, zap.NewNop())
		code, err := svc.NextCode(cmd.Context(), kind)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}
