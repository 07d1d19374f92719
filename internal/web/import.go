package web

import (
	"fmt"
	"net/http"

	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/spreadsheet"
)

const maxImportSize = 10 << 20

// handleClientImport creates one client per valid spreadsheet row. Rows
// the API rejects are counted, not retried. The body is already capped by
// limitUploads.
func (s *Server) handleClientImport(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		s.done(w, r, "/clients", "Arquivo inválido ou maior que 10 MB.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.done(w, r, "/clients", "Selecione uma planilha (.xlsx ou .xls).")
		return
	}
	defer file.Close()
	if header.Size > maxImportSize {
		s.done(w, r, "/clients", "Arquivo inválido ou maior que 10 MB.")
		return
	}

	clients, rowErrs, err := spreadsheet.ParseClients(file, header.Filename)
	if err != nil {
		appLog.Warn("client import rejected", "file", header.Filename, "error", err)
		s.done(w, r, "/clients", "Não foi possível ler a planilha: "+err.Error())
		return
	}

	created, failed := 0, 0
	for _, cl := range clients {
		if _, err := c.CreateClient(r.Context(), cl); err != nil {
			if _, stop := s.check(w, r, err, ""); stop {
				return
			}
			failed++
			continue
		}
		created++
	}
	appLog.Info("client import finished",
		"company", sess.CompanyID,
		"file", header.Filename,
		"created", created,
		"failed", failed,
		"invalid", len(rowErrs),
	)

	msg := fmt.Sprintf("Importação concluída: %d criado(s), %d recusado(s) pela API, %d linha(s) inválida(s).", created, failed, len(rowErrs))
	if len(rowErrs) > 0 {
		first := rowErrs[0]
		msg += fmt.Sprintf(" Linha %d: %s.", first.Line, first.Reason)
	}
	s.done(w, r, "/clients", msg)
}
