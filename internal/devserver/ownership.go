package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

func (s *Server) registerUserProducts(rg gin.IRoutes) {
	r := &resource[domain.UserProduct, domain.CreateUserProductRequest]{
		s:    s,
		name: "user product",
		rows: s.userProducts,
		build: func(c *gin.Context, req domain.CreateUserProductRequest, now time.Time) (domain.UserProduct, bool) {
			if _, err := s.products.get(req.ProductID); err != nil {
				abort(c, http.StatusBadRequest, "product %d not found", req.ProductID)
				return domain.UserProduct{}, false
			}
			userID := req.UserID
			if u, ok := s.currentUser(c); ok && userID == 0 {
				userID = u.ID
			}
			ts := domain.Timestamp{Time: now}
			return domain.UserProduct{
				UserID:           userID,
				ProductID:        req.ProductID,
				SerialNumber:     req.SerialNumber,
				PurchaseDate:     req.PurchaseDate,
				PurchasePrice:    req.PurchasePrice,
				PurchaseLocation: req.PurchaseLocation,
				ReceiptNumber:    req.ReceiptNumber,
				Notes:            req.Notes,
				CreatedAt:        ts,
				UpdatedAt:        ts,
			}, true
		},
		assign: func(row *domain.UserProduct, id int64) { row.ID = id },
		touch: func(row *domain.UserProduct, prev domain.UserProduct, now time.Time) {
			row.ID, row.CreatedAt, row.UpdatedAt = prev.ID, prev.CreatedAt, domain.Timestamp{Time: now}
		},
	}

	rg.GET("/user-product/product/:productId", func(c *gin.Context) {
		productID, ok := idParam(c, "productId")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.userProducts.list(func(up domain.UserProduct) bool {
			return up.ProductID == productID
		}))
	})
	r.register(rg, rg, "/user-product")
}

// settleStatus marks an active warranty whose end date has passed as expired.
func (s *Server) settleStatus(w *domain.Warranty) {
	if w.Status == domain.WarrantyActive && w.PastEnd(s.now()) {
		w.Status = domain.WarrantyExpired
	}
}

func (s *Server) registerWarranties(rg gin.IRoutes) {
	r := &resource[domain.Warranty, domain.CreateWarrantyRequest]{
		s:    s,
		name: "warranty",
		rows: s.warranties,
		build: func(c *gin.Context, req domain.CreateWarrantyRequest, now time.Time) (domain.Warranty, bool) {
			up, err := s.userProducts.get(req.UserProductID)
			if err != nil {
				abort(c, http.StatusBadRequest, "user product %d not found", req.UserProductID)
				return domain.Warranty{}, false
			}
			if req.CompanyID != 0 {
				if _, err := s.companies.get(req.CompanyID); err != nil {
					abort(c, http.StatusBadRequest, "company %d not found", req.CompanyID)
					return domain.Warranty{}, false
				}
			}
			userID := req.UserID
			if userID == 0 {
				userID = up.UserID
			}
			ts := domain.Timestamp{Time: now}
			w := domain.Warranty{
				UserID:         userID,
				CompanyID:      req.CompanyID,
				UserProductID:  req.UserProductID,
				StartDate:      req.StartDate,
				EndDate:        req.EndDate,
				WarrantyPeriod: req.WarrantyPeriod,
				WarrantyType:   req.WarrantyType,
				Notes:          req.Notes,
				Status:         req.Status,
				CreatedAt:      ts,
				UpdatedAt:      ts,
			}
			s.settleStatus(&w)
			return w, true
		},
		assign: func(row *domain.Warranty, id int64) { row.ID = id },
		touch: func(row *domain.Warranty, prev domain.Warranty, now time.Time) {
			row.ID, row.CreatedAt, row.UpdatedAt = prev.ID, prev.CreatedAt, domain.Timestamp{Time: now}
			s.settleStatus(row)
		},
	}

	rg.GET("/warranty/status/:status", func(c *gin.Context) {
		status := domain.WarrantyStatus(c.Param("status"))
		c.JSON(http.StatusOK, s.warranties.list(func(w domain.Warranty) bool {
			return w.Status == status
		}))
	})
	rg.GET("/warranty/expiring", func(c *gin.Context) {
		days, err := strconv.Atoi(c.Query("days"))
		if err != nil || days <= 0 {
			abort(c, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		today := s.today()
		c.JSON(http.StatusOK, s.expiringBetween(today, today.AddDays(days)))
	})

	rg.GET("/warranty/admin/all", r.list)
	rg.GET("/warranty/admin/user/:userId", func(c *gin.Context) {
		userID, ok := idParam(c, "userId")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.warranties.list(func(w domain.Warranty) bool {
			return w.UserID == userID
		}))
	})
	rg.GET("/warranty/admin/company/:companyId", func(c *gin.Context) {
		companyID, ok := idParam(c, "companyId")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.warranties.list(func(w domain.Warranty) bool {
			return w.CompanyID == companyID
		}))
	})
	rg.GET("/warranty/admin/expired", func(c *gin.Context) {
		now := s.now()
		c.JSON(http.StatusOK, s.warranties.list(func(w domain.Warranty) bool {
			return w.Status == domain.WarrantyExpired || (w.Status == domain.WarrantyActive && w.PastEnd(now))
		}))
	})
	rg.GET("/warranty/admin/expiring", func(c *gin.Context) {
		start, err := domain.ParseDate(c.Query("startDate"))
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid startDate")
			return
		}
		end, err := domain.ParseDate(c.Query("endDate"))
		if err != nil || end.Before(start.Time) {
			abort(c, http.StatusBadRequest, "invalid endDate")
			return
		}
		c.JSON(http.StatusOK, s.expiringBetween(start, end))
	})
	r.register(rg, rg, "/warranty")
}

// expiringBetween lists active warranties whose end date lies in [from, to].
func (s *Server) expiringBetween(from, to domain.Date) []domain.Warranty {
	return s.warranties.list(func(w domain.Warranty) bool {
		if w.Status != domain.WarrantyActive || w.EndDate.IsZero() {
			return false
		}
		return !w.EndDate.Before(from.Time) && !w.EndDate.After(to.Time)
	})
}

func (s *Server) registerClaims(rg gin.IRoutes) {
	r := &resource[domain.Claim, domain.CreateClaimRequest]{
		s:    s,
		name: "claim",
		rows: s.claims,
		build: func(c *gin.Context, req domain.CreateClaimRequest, now time.Time) (domain.Claim, bool) {
			if _, err := s.warranties.get(req.WarrantyID); err != nil {
				abort(c, http.StatusBadRequest, "warranty %d not found", req.WarrantyID)
				return domain.Claim{}, false
			}
			claimDate := req.ClaimDate
			if claimDate.IsZero() {
				claimDate = domain.DateOf(now)
			}
			ts := domain.Timestamp{Time: now}
			return domain.Claim{
				WarrantyID:        req.WarrantyID,
				ClaimDate:         claimDate,
				Status:            req.Status,
				ReferenceNumber:   req.ReferenceNumber,
				IssueDescription:  req.IssueDescription,
				ResolutionDetails: req.ResolutionDetails,
				CreatedAt:         ts,
				UpdatedAt:         ts,
			}, true
		},
		assign: func(row *domain.Claim, id int64) { row.ID = id },
		touch: func(row *domain.Claim, prev domain.Claim, now time.Time) {
			row.ID, row.CreatedAt, row.UpdatedAt = prev.ID, prev.CreatedAt, domain.Timestamp{Time: now}
		},
	}

	rg.GET("/claim/warranty/:warrantyId", func(c *gin.Context) {
		warrantyID, ok := idParam(c, "warrantyId")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.claims.list(func(cl domain.Claim) bool {
			return cl.WarrantyID == warrantyID
		}))
	})
	rg.GET("/claim/status/:status", func(c *gin.Context) {
		status := domain.ClaimStatus(c.Param("status"))
		c.JSON(http.StatusOK, s.claims.list(func(cl domain.Claim) bool {
			return cl.Status == status
		}))
	})
	r.register(rg, rg, "/claim")
}
