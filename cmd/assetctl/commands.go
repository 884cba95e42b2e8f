package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/client"
	"github.com/msmehub/assetstore/pkg/assetstore/transfer"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	var (
		contentType string
		entityType  string
		entityID    string
		chunkSize   int64
		threshold   int64
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and print its asset id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return err
			}

			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(path))
				if contentType == "" {
					contentType = "application/octet-stream"
				}
			}

			var entity *assetstore.EntityRef
			if entityType != "" && entityID != "" {
				entity = &assetstore.EntityRef{Type: entityType, ID: entityID}
			}

			uploader := transfer.NewUploader(
				client.New(serverURL, authToken),
				transfer.WithChunkSize(chunkSize),
				transfer.WithSingleShotThreshold(threshold),
			)

			bar := pb.New(100)
			bar.Start()

			assetID, err := uploader.Upload(cmd.Context(), transfer.UploadRequest{
				ContentType: contentType,
				Data:        file,
				Size:        info.Size(),
				Entity:      entity,
				Progress: func(percent int) {
					bar.SetCurrent(int64(percent))
				},
			})
			bar.Finish()
			if err != nil {
				return err
			}

			fmt.Println(assetID)
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (default: derived from file extension)")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "related entity type tag")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "related entity id tag")
	cmd.Flags().Int64Var(&chunkSize, "chunk-size", transfer.DefaultChunkSize, "chunk size in bytes for chunked uploads")
	cmd.Flags().Int64Var(&threshold, "threshold", transfer.DefaultSingleShotThreshold, "largest payload stored in a single call")

	return cmd
}

func newDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <asset-id>",
		Short: "Download an asset to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid asset id: %w", err)
			}

			downloader := transfer.NewDownloader(client.New(serverURL, authToken))

			bar := pb.New(100)
			bar.Start()
			result, err := downloader.Download(cmd.Context(), id, func(percent int) {
				bar.SetCurrent(int64(percent))
			})
			bar.Finish()
			if err != nil {
				return err
			}
			if result == nil {
				return fmt.Errorf("asset %s not found", id)
			}

			if output == "" || output == "-" {
				_, err := os.Stdout.Write(result.Data)
				return err
			}
			return os.WriteFile(output, result.Data, 0644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <asset-id>",
		Short: "Show a chunked asset header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid asset id: %w", err)
			}

			svc := client.New(serverURL, authToken)

			header, err := svc.GetChunkedAssetInfo(cmd.Context(), id)
			if err != nil {
				return err
			}
			if header == nil {
				return fmt.Errorf("no chunked asset with id %s", id)
			}

			fmt.Printf("ID:           %s\n", header.ID)
			fmt.Printf("Content type: %s\n", header.ContentType)
			fmt.Printf("Owner:        %s\n", header.Owner)
			fmt.Printf("Chunks:       %d\n", len(header.ChunkIDs))
			fmt.Printf("Declared:     %d bytes\n", header.TotalSize)
			fmt.Printf("Stored:       %d bytes\n", header.StoredSize)
			fmt.Printf("Sealed:       %t\n", header.Sealed)
			if header.Checksum != "" {
				fmt.Printf("Checksum:     %s\n", header.Checksum)
			}
			if header.Entity != nil {
				fmt.Printf("Entity:       %s/%s\n", header.Entity.Type, header.Entity.ID)
			}
			return nil
		},
	}
}
