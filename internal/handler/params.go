package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/catalog_api/internal/repository"
	"github.com/GTDGit/catalog_api/internal/service"
	"github.com/GTDGit/catalog_api/internal/utils"
)

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.Error(c, 400, "INVALID_ID", "Invalid id")
		return 0, false
	}
	return id, true
}

// parsePageRequest reads page, limit and sort. Limits above the maximum are
// clamped, not rejected.
func parsePageRequest(c *gin.Context) (repository.PageRequest, error) {
	req := repository.PageRequest{Page: 1, Limit: repository.DefaultPageLimit}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("page must be a positive integer")
		}
		req.Page = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("limit must be a positive integer")
		}
		req.Limit = n
	}
	sort, err := repository.ParseSort(c.Query("sort"))
	if err != nil {
		return req, err
	}
	req.Sort = sort
	norm := req.Normalize()
	if req.Page > repository.MaxPage(norm.Limit) {
		return req, fmt.Errorf("page must not exceed %d", repository.MaxPage(norm.Limit))
	}
	return norm, nil
}

func parseProductFilter(c *gin.Context) (repository.ProductFilter, error) {
	f := repository.ProductFilter{
		Search: c.Query("search"),
		Brand:  c.Query("brand"),
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	if v := c.Query("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("categoryId must be an integer")
		}
		f.CategoryID = &id
	}
	var err error
	if f.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return f, err
	}
	if f.InStock, err = queryBool(c, "inStock"); err != nil {
		return f, err
	}
	if f.Featured, err = queryBool(c, "featured"); err != nil {
		return f, err
	}
	return f, nil
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a decimal number", key)
	}
	return &d, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &b, nil
}

// writePage writes a product page with the pagination meta block.
func writePage(c *gin.Context, message string, page *service.ProductPageView) {
	utils.SuccessWithPagination(c, 200, message, page.Items, page.Page, page.Limit, page.TotalItems)
}
