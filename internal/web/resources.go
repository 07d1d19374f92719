package web

import (
	"net/http"
	"strconv"

	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
	"agendaconsole/internal/spreadsheet"
)

// listView backs the CRUD pages: the records plus the one being edited
// (picked with ?edit=<id>).
type listView[T any] struct {
	Items   []T
	Editing *T
}

func pick[T any](items []T, id int64, idOf func(T) int64) *T {
	if id <= 0 {
		return nil
	}
	for i := range items {
		if idOf(items[i]) == id {
			return &items[i]
		}
	}
	return nil
}

// Clients

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	items, err := c.Clients(r.Context())
	notice, stop := s.check(w, r, err, "Falha ao carregar clientes")
	if stop {
		return
	}
	view := listView[model.Client]{Items: items}
	view.Editing = pick(items, queryID(r, "edit"), func(c model.Client) int64 { return c.ID })

	p, ok := s.page(w, r, "", "clients", view)
	if !ok {
		return
	}
	p.Title = p.Labels.Clients.Plural
	p.Notice = notice
	s.render(w, http.StatusOK, "clients.html", "layout", p)
}

func (s *Server) handleClientSave(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	id := pathID(r)
	cl := model.Client{
		Name:    formStr(r, "name"),
		Email:   formStr(r, "email"),
		Phone:   formStr(r, "phone"),
		CnpjCpf: formStr(r, "cnpjcpf"),
		Active:  formBool(r, "active"),
	}
	if cl.Name == "" || cl.Email == "" {
		s.done(w, r, "/clients", "Nome e e-mail são obrigatórios.")
		return
	}

	var err error
	if id > 0 {
		_, err = c.UpdateClient(r.Context(), id, cl)
	} else {
		cl.Password = r.PostFormValue("password")
		_, err = c.CreateClient(r.Context(), cl)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar cliente", "/clients")
		return
	}
	s.done(w, r, "/clients", "Cliente salvo")
}

func (s *Server) handleClientDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteClient(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir cliente", "/clients")
		return
	}
	s.done(w, r, "/clients", "Cliente excluído")
}

// Professionals

func (s *Server) handleProfessionals(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	items, err := c.ProfessionalsByCompany(r.Context(), sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar profissionais")
	if stop {
		return
	}
	view := listView[model.Professional]{Items: items}
	view.Editing = pick(items, queryID(r, "edit"), func(p model.Professional) int64 { return p.ID })

	p, ok := s.page(w, r, "", "professionals", view)
	if !ok {
		return
	}
	p.Title = p.Labels.Professionals.Plural
	p.Notice = notice
	s.render(w, http.StatusOK, "professionals.html", "layout", p)
}

func (s *Server) handleProfessionalSave(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	id := pathID(r)
	p := model.Professional{
		CompanyID:      sess.CompanyID,
		Name:           formStr(r, "name"),
		Email:          formStr(r, "email"),
		Phone:          formStr(r, "phone"),
		Specialization: formStr(r, "specialization"),
		Available:      formBool(r, "available"),
		Active:         formBool(r, "active"),
	}
	if p.Name == "" || p.Email == "" {
		s.done(w, r, "/professionals", "Nome e e-mail são obrigatórios.")
		return
	}

	var err error
	if id > 0 {
		_, err = c.UpdateProfessional(r.Context(), id, p)
	} else {
		_, err = c.CreateProfessional(r.Context(), p)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar profissional", "/professionals")
		return
	}
	s.done(w, r, "/professionals", "Profissional salvo")
}

func (s *Server) handleProfessionalDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteProfessional(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir profissional", "/professionals")
		return
	}
	s.done(w, r, "/professionals", "Profissional excluído")
}

// Services

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	items, err := c.ServicesByCompany(r.Context(), sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar serviços")
	if stop {
		return
	}
	view := listView[model.Service]{Items: items}
	view.Editing = pick(items, queryID(r, "edit"), func(sv model.Service) int64 { return sv.ID })

	p, ok := s.page(w, r, "", "services", view)
	if !ok {
		return
	}
	p.Title = p.Labels.Services.Plural
	p.Notice = notice
	s.render(w, http.StatusOK, "services.html", "layout", p)
}

func (s *Server) handleServiceSave(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	id := pathID(r)
	sv := model.Service{
		CompanyID:       sess.CompanyID,
		Name:            formStr(r, "name"),
		Description:     formStr(r, "description"),
		Price:           formFloat(r, "price"),
		DurationMinutes: formInt(r, "durationMinutes"),
		Active:          formBool(r, "active"),
	}
	if sv.Name == "" || sv.DurationMinutes <= 0 || sv.Price < 0 {
		s.done(w, r, "/services", "Informe nome, duração e preço válidos.")
		return
	}

	var err error
	if id > 0 {
		_, err = c.UpdateService(r.Context(), id, sv)
	} else {
		_, err = c.CreateService(r.Context(), sv)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar serviço", "/services")
		return
	}
	s.done(w, r, "/services", "Serviço salvo")
}

func (s *Server) handleServiceDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteService(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir serviço", "/services")
		return
	}
	s.done(w, r, "/services", "Serviço excluído")
}

// Products

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	items, err := c.Products(r.Context())
	notice, stop := s.check(w, r, err, "Falha ao carregar produtos")
	if stop {
		return
	}
	view := listView[model.Product]{Items: items}
	view.Editing = pick(items, queryID(r, "edit"), func(p model.Product) int64 { return p.ID })

	p, ok := s.page(w, r, "Produtos", "products", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "products.html", "layout", p)
}

func (s *Server) handleProductSave(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	id := pathID(r)
	p := model.Product{
		Name:        formStr(r, "name"),
		Description: formStr(r, "description"),
		Price:       formFloatOpt(r, "price"),
		Active:      formBool(r, "active"),
	}
	if p.Name == "" {
		s.done(w, r, "/products", "Informe o nome do produto.")
		return
	}

	var err error
	if id > 0 {
		_, err = c.UpdateProduct(r.Context(), id, p)
	} else {
		_, err = c.CreateProduct(r.Context(), p)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar produto", "/products")
		return
	}
	s.done(w, r, "/products", "Produto salvo")
}

func (s *Server) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteProduct(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir produto", "/products")
		return
	}
	s.done(w, r, "/products", "Produto excluído")
}

// Stocks

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	items, err := c.StocksByCompany(r.Context(), sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar estoque")
	if stop {
		return
	}
	view := listView[model.Stock]{Items: items}
	view.Editing = pick(items, queryID(r, "edit"), func(st model.Stock) int64 { return st.ID })

	p, ok := s.page(w, r, "Estoque", "stocks", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "stocks.html", "layout", p)
}

func (s *Server) handleStocksXLSX(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	items, err := c.StocksByCompany(r.Context(), sess.CompanyID)
	if notice, stop := s.check(w, r, err, "Falha ao carregar estoque"); stop {
		return
	} else if err != nil {
		http.Error(w, notice, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="estoque.xlsx"`)
	if err := spreadsheet.WriteStock(w, items); err != nil {
		appLog.Error("xlsx export failed", err, "company", sess.CompanyID)
	}
}

func (s *Server) handleStockSave(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	id := pathID(r)
	st := model.Stock{
		CompanyID:       sess.CompanyID,
		ProductName:     formStr(r, "productName"),
		SKU:             formStr(r, "sku"),
		Description:     formStr(r, "description"),
		Quantity:        formInt(r, "quantity"),
		MinimumQuantity: formIntOpt(r, "minimumQuantity"),
		Active:          formBool(r, "active"),
	}
	if st.ProductName == "" || st.Quantity < 0 {
		s.done(w, r, "/stocks", "Informe o produto e uma quantidade válida.")
		return
	}

	var err error
	if id > 0 {
		_, err = c.UpdateStock(r.Context(), id, st)
	} else {
		_, err = c.CreateStock(r.Context(), st)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar estoque", "/stocks")
		return
	}
	s.done(w, r, "/stocks", "Estoque salvo")
}

func (s *Server) handleStockDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteStock(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir estoque", "/stocks")
		return
	}
	s.done(w, r, "/stocks", "Estoque excluído")
}

// Movements

type movementsView struct {
	Items   []model.StockMovement
	Stocks  []model.Stock
	StockID int64
	names   map[int64]string
}

func (v movementsView) StockName(id int64) string {
	if n, ok := v.names[id]; ok {
		return n
	}
	return "#" + strconv.FormatInt(id, 10)
}

func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	view := movementsView{StockID: queryID(r, "stock"), names: map[int64]string{}}

	stocks, err := c.StocksByCompany(r.Context(), sess.CompanyID)
	if err == nil {
		view.Stocks = stocks
		if view.StockID > 0 {
			view.Items, err = c.MovementsByStock(r.Context(), view.StockID)
		} else {
			view.Items, err = c.MovementsByCompany(r.Context(), sess.CompanyID)
		}
	}
	notice, stop := s.check(w, r, err, "Falha ao carregar movimentações")
	if stop {
		return
	}
	for _, st := range view.Stocks {
		view.names[st.ID] = st.ProductName
	}

	p, ok := s.page(w, r, "Movimentações", "movements", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "movements.html", "layout", p)
}

func (s *Server) handleMovementCreate(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	m := model.StockMovement{
		CompanyID:    sess.CompanyID,
		StockID:      formInt64(r, "stockId"),
		Quantity:     formInt(r, "quantity"),
		MovementType: formStr(r, "movementType"),
		Notes:        formStr(r, "notes"),
	}
	back := "/movements"
	if m.StockID > 0 {
		back += "?stock=" + strconv.FormatInt(m.StockID, 10)
	}
	if m.StockID == 0 || m.Quantity <= 0 {
		s.done(w, r, back, "Informe o estoque e uma quantidade positiva.")
		return
	}
	if m.MovementType != model.MovementIn && m.MovementType != model.MovementOut {
		s.done(w, r, back, "Tipo de movimentação inválido.")
		return
	}
	if _, err := c.CreateMovement(r.Context(), m); err != nil {
		s.fail(w, r, err, "Falha ao registrar movimentação", back)
		return
	}
	s.done(w, r, back, "Movimentação registrada")
}

func (s *Server) handleMovementDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteMovement(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir movimentação", "/movements")
		return
	}
	s.done(w, r, "/movements", "Movimentação excluída")
}

// Cases

type casesView struct {
	listView[model.Case]
	Clients       []model.Client
	Professionals []model.Professional
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	view := casesView{}

	items, err := c.Cases(r.Context())
	if err == nil {
		view.Items = items
		view.Editing = pick(items, queryID(r, "edit"), func(cs model.Case) int64 { return cs.ID })
		if view.Clients, err = c.Clients(r.Context()); err == nil {
			view.Professionals, err = c.ProfessionalsByCompany(r.Context(), sess.CompanyID)
		}
	}
	notice, stop := s.check(w, r, err, "Falha ao carregar processos")
	if stop {
		return
	}

	p, ok := s.page(w, r, "", "cases", view)
	if !ok {
		return
	}
	p.Title = p.Labels.Cases.Plural
	p.Notice = notice
	s.render(w, http.StatusOK, "cases.html", "layout", p)
}

func (s *Server) handleCaseSave(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	id := pathID(r)
	p := model.CasePayload{
		ClientID:       formInt64Opt(r, "clientId"),
		ProfessionalID: formInt64Opt(r, "professionalId"),
		Title:          formStr(r, "title"),
		CaseNumber:     formOpt(r, "caseNumber"),
		Area:           formOpt(r, "area"),
		Status:         formOpt(r, "status"),
		Priority:       formOpt(r, "priority"),
		Notes:          formOpt(r, "notes"),
	}
	if p.Title == "" {
		s.done(w, r, "/cases", "Informe o título.")
		return
	}

	var err error
	if id > 0 {
		err = c.UpdateCase(r.Context(), id, p)
	} else {
		_, err = c.CreateCase(r.Context(), p)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar processo", "/cases")
		return
	}
	s.done(w, r, "/cases", "Processo salvo")
}

func (s *Server) handleCaseDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	if err := c.DeleteCase(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir processo", "/cases")
		return
	}
	s.done(w, r, "/cases", "Processo excluído")
}
