package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/ledger-bot-go/internal/infra/spreadsheet"
	"github.com/boddenberg/ledger-bot-go/internal/service"

	"go.uber.org/zap"
)

// exportHandler serves the spreadsheet behind a signed export link.
func exportHandler(exporter *service.Exporter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, err := service.ParseExportLink(r.URL.Query())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rep, err := exporter.Download(r.Context(), link)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var buf bytes.Buffer
		if err := spreadsheet.Write(&buf, rep); err != nil {
			logger.Error("export: render workbook", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		logger.Info("export: served",
			zap.String("owner", link.OwnerID),
			zap.String("period", link.Period),
			zap.Int("bytes", buf.Len()),
		)

		w.Header().Set("Content-Type", spreadsheet.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", spreadsheet.Filename(rep)))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
