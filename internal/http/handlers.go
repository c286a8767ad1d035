// Package httpapi exposes the REST API: customer catalog and search,
// store listing, and the seller item endpoints.
package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopmesh/shopmesh/internal/catalog"
	"github.com/shopmesh/shopmesh/internal/ingest"
	"github.com/shopmesh/shopmesh/internal/model"
	"github.com/shopmesh/shopmesh/internal/notify"
)

// Server wires the gin engine to the catalog and the ingestion pipeline.
type Server struct {
	engine   *gin.Engine
	cat      *catalog.Service
	pipeline *ingest.Pipeline
	notifier *notify.Dispatcher
	started  time.Time
}

// NewServer builds the router. notifier may be nil in tests.
func NewServer(cat *catalog.Service, notifier *notify.Dispatcher) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logging())
	s := &Server{
		engine:   r,
		cat:      cat,
		pipeline: ingest.NewPipeline(cat),
		notifier: notifier,
		started:  time.Now(),
	}
	s.registerRoutes()
	return s
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/catalog", s.getCatalog)
		api.GET("/search", s.search)
		api.GET("/stores", s.getStores)

		seller := api.Group("/seller")
		seller.GET("/items", s.getSellerItems)
		seller.POST("/items", s.addItem)
		seller.PUT("/items/:id", s.updateItem)
		seller.DELETE("/items/:id", s.deleteItem)
		seller.POST("/upload-csv", s.uploadCSV)
	}
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/debug/metrics", s.metrics)
}

func (s *Server) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.cat.List())
}

func (s *Server) search(c *gin.Context) {
	c.JSON(http.StatusOK, s.cat.Search(c.Query("q"), c.Query("category")))
}

func (s *Server) getStores(c *gin.Context) {
	c.JSON(http.StatusOK, s.cat.Stores())
}

func (s *Server) getSellerItems(c *gin.Context) {
	storeID, err := strconv.ParseInt(c.DefaultQuery("storeId", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid storeId"})
		return
	}
	c.JSON(http.StatusOK, s.cat.ByStore(storeID))
}

// sellerItemReq carries the seller item payload. Validation mirrors the
// ingestion gate: name required, price and stock within [0, 999999].
type sellerItemReq struct {
	Name                 string   `json:"name" binding:"required"`
	Description          string   `json:"description"`
	Price                float64  `json:"price" binding:"gte=0,lte=999999"`
	Stock                int64    `json:"stock" binding:"gte=0,lte=999999"`
	StoreID              int64    `json:"storeId"`
	Category             string   `json:"category" binding:"omitempty,oneof=general pharmacy"`
	Image                string   `json:"image" binding:"omitempty,url"`
	DeliveryOptions      []string `json:"deliveryOptions"`
	DrugName             string   `json:"drugName"`
	BrandName            string   `json:"brandName"`
	GenericEquivalent    string   `json:"genericEquivalent"`
	DosageForm           string   `json:"dosageForm"`
	Strength             string   `json:"strength"`
	ActiveIngredients    string   `json:"activeIngredients"`
	Warnings             string   `json:"warnings"`
	DosesPerPack         int64    `json:"dosesPerPack"`
	PrescriptionRequired *bool    `json:"prescriptionRequired"`
}

func (r sellerItemReq) toProduct() model.Product {
	return model.Product{
		Name:                 r.Name,
		Description:          r.Description,
		Price:                r.Price,
		Stock:                r.Stock,
		StoreID:              r.StoreID,
		Category:             r.Category,
		Image:                r.Image,
		DeliveryOptions:      r.DeliveryOptions,
		DrugName:             r.DrugName,
		BrandName:            r.BrandName,
		GenericEquivalent:    r.GenericEquivalent,
		DosageForm:           r.DosageForm,
		Strength:             r.Strength,
		ActiveIngredients:    r.ActiveIngredients,
		Warnings:             r.Warnings,
		DosesPerPack:         r.DosesPerPack,
		PrescriptionRequired: r.PrescriptionRequired,
	}
}

func (s *Server) addItem(c *gin.Context) {
	var req sellerItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := req.toProduct()
	if p.StoreID == 0 {
		p.StoreID = 1
	}
	if p.Category == "" {
		p.Category = model.CategoryGeneral
	}
	c.JSON(http.StatusOK, s.cat.Add(p))
}

func (s *Server) updateItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req sellerItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, ok := s.cat.Update(id, req.toProduct())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if !s.cat.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// uploadCSV runs a seller's bulk file through the same
// sanitize/validate/reconcile path as emailed CSV attachments.
func (s *Server) uploadCSV(c *gin.Context) {
	storeID, err := strconv.ParseInt(c.DefaultPostForm("storeId", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid storeId"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := s.pipeline.IngestCSV(storeID, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "itemsAdded": n})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) metrics(c *gin.Context) {
	m := gin.H{
		"catalog_entries": s.cat.Len(),
		"uptime_sec":      time.Since(s.started).Seconds(),
	}
	if s.notifier != nil {
		enq, sent, backlog := s.notifier.Metrics()
		m["confirmations_enqueued"] = enq
		m["confirmations_sent"] = sent
		m["confirmation_backlog"] = backlog
	}
	c.JSON(http.StatusOK, m)
}
