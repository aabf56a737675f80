package vision

import (
	"image"
	"math"

	"colony-counter/internal/domain/entity"
)

// Соседи по часовой стрелке (ось Y направлена вниз): E, SE, S, SW, W, NW, N, NE.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const dirWest = 4

// extractColonies находит внешние контуры маски и оставляет только те,
// чья площадь строго между minArea и maxArea.
func extractColonies(mask *image.Gray, minArea, maxArea float64) []entity.Colony {
	colonies := []entity.Colony{}
	for _, contour := range findExternalContours(mask) {
		area := polygonArea(contour)
		if area <= minArea || area >= maxArea {
			continue
		}
		r := boundingRect(contour)
		colonies = append(colonies, entity.ColonyFromRect(r.Min.X, r.Min.Y, r.Dx(), r.Dy()))
	}
	return colonies
}

// findExternalContours возвращает внешние границы 8-связных областей
// переднего плана в порядке обхода строк. Области, лежащие внутри дыр
// других областей, пропускаются.
func findExternalContours(mask *image.Gray) [][]image.Point {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	pw, ph := w+2, h+2

	fg := make([]bool, pw*ph)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			if row[x] != 0 {
				fg[(y+1)*pw+x+1] = true
			}
		}
	}

	outside := floodOutside(fg, pw, ph)
	labels := make([]bool, pw*ph)
	var (
		contours [][]image.Point
		stack    []int
	)
	for i := range fg {
		if !fg[i] || labels[i] {
			continue
		}
		stack = labelRegion(fg, labels, pw, i, stack[:0])
		// первый пиксель области самый верхний-левый: сверху у него фон,
		// и этот фон внешний только у областей не внутри дыр
		if !outside[i-pw] {
			continue
		}
		contours = append(contours, traceBorder(fg, pw, i))
	}
	return contours
}

// floodOutside помечает 4-связный фон, достижимый от рамки изображения.
func floodOutside(fg []bool, pw, ph int) []bool {
	outside := make([]bool, pw*ph)
	outside[0] = true
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%pw, i/pw
		for _, n := range [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+n.X, y+n.Y
			if nx < 0 || ny < 0 || nx >= pw || ny >= ph {
				continue
			}
			j := ny*pw + nx
			if fg[j] || outside[j] {
				continue
			}
			outside[j] = true
			stack = append(stack, j)
		}
	}
	return outside
}

// labelRegion отмечает 8-связную область, начиная с пикселя start.
// Пиксели переднего плана не лежат на рамке, поэтому соседи всегда в границах.
func labelRegion(fg, labels []bool, pw, start int, stack []int) []int {
	labels[start] = true
	stack = append(stack, start)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range neighbours {
			j := i + n.Y*pw + n.X
			if fg[j] && !labels[j] {
				labels[j] = true
				stack = append(stack, j)
			}
		}
	}
	return stack
}

// traceBorder обходит внешнюю границу области по алгоритму Suzuki–Abe,
// начиная с её верхнего-левого пикселя. Точки возвращаются в координатах маски.
func traceBorder(fg []bool, pw, start int) []image.Point {
	one := image.Pt(1, 1)
	p0 := image.Pt(start%pw, start/pw)
	at := func(p image.Point) bool { return fg[p.Y*pw+p.X] }

	first := -1
	for k := 0; k < 8; k++ {
		d := (dirWest + k) % 8
		if at(p0.Add(neighbours[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		return []image.Point{p0.Sub(one)}
	}

	p1 := p0.Add(neighbours[first])
	prev, cur := p1, p0
	var points []image.Point
	for {
		points = append(points, cur.Sub(one))

		back := direction(prev.Sub(cur))
		next := prev
		for k := 1; k <= 8; k++ {
			q := cur.Add(neighbours[(back-k+8)%8])
			if at(q) {
				next = q
				break
			}
		}
		if next == p0 && cur == p1 {
			return points
		}
		prev, cur = cur, next
	}
}

func direction(delta image.Point) int {
	for d, n := range neighbours {
		if n == delta {
			return d
		}
	}
	return 0
}

// polygonArea площадь многоугольника по формуле шнурков.
func polygonArea(points []image.Point) float64 {
	if len(points) < 3 {
		return 0
	}
	var sum int64
	j := len(points) - 1
	for i, p := range points {
		q := points[j]
		sum += int64(q.X)*int64(p.Y) - int64(p.X)*int64(q.Y)
		j = i
	}
	return math.Abs(float64(sum)) / 2
}

// boundingRect возвращает прямоугольник, включающий все точки.
func boundingRect(points []image.Point) image.Rectangle {
	r := image.Rectangle{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}
